// Package config loads backend configuration.
//
// Values are resolved in three layers, later layers winning:
//   - Default(): built-in values suitable for local development
//   - CONFIG_FILE: optional TOML or YAML file (selected by extension)
//   - Environment: variables such as PORT, LOG_LEVEL, STORAGE_BACKEND
//
// Durations accept Go duration strings ("10s", "1m30s") in every layer.
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	addr := cfg.Server.Host + ":" + cfg.Server.Port
package config
