package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/config"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/logger"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configFile string
	logLevel   string
	verbose    bool
}

// cli is one invocation of the command tree.
type cli struct {
	flags rootFlags
	app   *app
}

// close releases the stack started for the invocation, if any.
func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, version string, args []string) int {
	cmd, c := newRootCmd(version)
	defer c.close()

	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(version string) (*cobra.Command, *cli) {
	c := &cli{}
	flags := &c.flags

	root := &cobra.Command{
		Use:          "balflow",
		Short:        "Maximum balanced flows on skew-symmetric networks",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if version != "" {
				cfg.App.Version = version
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = a
			cmd.SetContext(withApp(cmd.Context(), a))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "path to config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newSolveCmd(),
		newProbeCmd(),
		newAlgorithmsCmd(),
		newHistoryCmd(),
		newCacheCmd(),
		newMigrateCmd(),
	)
	return root, c
}

// loadConfig loads the configuration and initialises the logger from it.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	var opts []config.LoaderOption
	if flags.configFile != "" {
		opts = append(opts, config.WithFile(flags.configFile))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch {
	case flags.verbose:
		cfg.Log.Level = "debug"
	case flags.logLevel != "":
		cfg.Log.Level = flags.logLevel
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	return cfg, nil
}

type appKey struct{}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}
