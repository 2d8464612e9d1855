package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/linerds/timetable-go/internal/config"
	"github.com/linerds/timetable-go/internal/logging"
	"github.com/linerds/timetable-go/internal/telemetry"
	"github.com/linerds/timetable-go/timetable"
)

// app carries the configuration resolved before any subcommand runs.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger

	// Set only when telemetry is enabled.
	telemetry        *telemetry.Providers
	metrics          timetable.MetricsCollector
	tracing          timetable.TracingCollector
	contextualLogger timetable.ContextualLogger
}

// NewRootCmd creates the root timetable command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "timetable",
		Short:         "Local cache and faceted filter for university timetables",
		Long:          "timetable syncs schedules from the upstream API into a local database and resolves include/exclude filters against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	// Global flags, mapped to viper keys in initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().String("driver", "", "database driver: pgx, postgres or sqlite3")
	root.PersistentFlags().String("dsn", "", "database connection string")

	root.AddCommand(
		newMigrateCmd(a),
		newSyncCmd(a),
		newResolveCmd(a),
		newShowCmd(a),
	)

	for _, sub := range root.Commands() {
		a.flushTelemetryAfter(sub)
	}

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := initViper(cmd, a.v); err != nil {
		return err
	}

	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger

	return a.initTelemetry(cmd.Context())
}

// initViper sets up defaults, env bindings, flag bindings, and the optional config file so the
// standard precedence (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Join(config.ErrReadingConfigFailed, err)
		}
	} else {
		v.SetConfigName("timetable")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/timetable")
		v.AddConfigPath("/etc/timetable")

		// No config file is fine, defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return errors.Join(config.ErrReadingConfigFailed, err)
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"log.level":       "log-level",
		"database.driver": "driver",
		"database.dsn":    "dsn",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}

	return nil
}
