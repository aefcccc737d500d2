package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-civic-auth/config"
)

var (
	cfgPath string
	cfg     *config.Config
	lgr     *glog.BaseLogger
)

var rootCmd = &cobra.Command{
	Use:   "civic-api",
	Short: "Civic issue reporting API",
	Long: `civic-api serves the civic issue reporting backend: account
registration, token based login, issue reports and their moderation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		lgr = newLogger(cfg.Logging)
		if cfg.Logging.Level == "debug" || cfg.Logging.Level == "trace" {
			lgr.GetLogger("config").Debug(print.MaybeHighlightJSON(cfg.Redacted()))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML or TOML config file (env: CIVIC_*)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(adminCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(c config.LoggingConfig) *glog.BaseLogger {
	if c.Level == "debug" || c.Level == "trace" {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("app"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}

	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}
