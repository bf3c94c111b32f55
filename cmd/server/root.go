package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	apihttp "github.com/GriffinCanCode/AppFeed/backend/internal/api/http"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/server"
)

// serveOptions are the flags that override configuration
type serveOptions struct {
	configFile string
	host       string
	port       string
	dev        bool
	storage    string
	dataPath   string
	generator  string
	seedDir    string
	noSeed     bool
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:   "appfeed",
		Short: "AppFeed backend: a social feed for generated mini-apps",
		Long: `AppFeed serves the mini-app feed API, sandbox previews, generation
and the live WebSocket stream.

Configuration comes from defaults, an optional TOML or YAML file
(CONFIG_FILE or --config), environment variables, then flags.`,
		Version:       apihttp.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd.Flags(), opts)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("appfeed %s\n", apihttp.Version))

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd.Flags(), opts)
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "appfeed %s\n", apihttp.Version)
		},
	}

	bindServeFlags(root.PersistentFlags(), opts)
	root.AddCommand(serve, version)
	return root
}

func bindServeFlags(fs *pflag.FlagSet, opts *serveOptions) {
	fs.StringVarP(&opts.configFile, "config", "c", "", "TOML or YAML config file")
	fs.StringVar(&opts.host, "host", "", "listen host")
	fs.StringVarP(&opts.port, "port", "p", "", "listen port")
	fs.BoolVar(&opts.dev, "dev", false, "development logging")
	fs.StringVar(&opts.storage, "storage", "", "storage backend (memory or badger)")
	fs.StringVar(&opts.dataPath, "data", "", "badger data directory")
	fs.StringVar(&opts.generator, "generator", "", "generator provider (mock, anthropic or openai)")
	fs.StringVar(&opts.seedDir, "seed-dir", "", "directory of extra app manifests to seed")
	fs.BoolVar(&opts.noSeed, "no-seed", false, "skip loading seed data")
}

// loadConfig builds the configuration and applies flag overrides
func loadConfig(fs *pflag.FlagSet, opts *serveOptions) (*config.Config, error) {
	if opts.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", opts.configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if fs.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if fs.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if fs.Changed("dev") {
		cfg.Logging.Development = opts.dev
	}
	if fs.Changed("storage") {
		cfg.Storage.Backend = opts.storage
	}
	if fs.Changed("data") {
		cfg.Storage.Path = opts.dataPath
	}
	if fs.Changed("generator") {
		cfg.Generator.Provider = opts.generator
	}
	if fs.Changed("seed-dir") {
		cfg.Seed.Dir = opts.seedDir
	}
	if opts.noSeed {
		cfg.Seed.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, fs *pflag.FlagSet, opts *serveOptions) error {
	cfg, err := loadConfig(fs, opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
