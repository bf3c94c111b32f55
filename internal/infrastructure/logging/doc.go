// Package logging builds the zap loggers handed to every AppFeed component.
//
// Production logs are JSON; development mode (LOG_DEV=true or --dev)
// switches to coloured console output with stack traces on errors.
// Components never log through a global: the server builds one Logger
// and passes *zap.Logger (or a Named child) into each constructor.
//
//	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level})
//	feed := apps.NewManager(st, analyzer, apps.DefaultConfig(), logger.Named("apps").Logger)
//	feed.Create(ctx, in) // logs "app created" with app_id and safety_score
package logging
