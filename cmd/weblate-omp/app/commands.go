// Package app provides the commands of the weblate-omp binary.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/versions"
)

// NewRootCmd creates the root command. onDebug is called with the value
// of --debug before any subcommand runs.
func NewRootCmd(onDebug func(bool)) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:               "weblate-omp",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Weblate addon runtime",
		Long: `weblate-omp runs Weblate component addons: it recreates translations when
a component template changes, refreshes the translation memory and schedules
automatic translation.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if onDebug != nil {
				onDebug(v.GetBool("debug"))
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	mustBind(v.BindPFlags(root.PersistentFlags()))

	root.AddCommand(
		newServeCmd(v),
		newMigrateCmd(v),
		newUpdateCmd(v),
		newDailyCmd(v),
		newInstallAddonCmd(v),
		newVersionCmd(),
	)
	return root
}

func mustBind(err error) {
	if err != nil {
		panic(fmt.Sprintf("failed to bind flags: %v", err))
	}
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.Get()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "weblate-omp %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// loadConfig reads the file named by --config, or returns the defaults
// when none is given.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	path := v.GetString("config")
	if path == "" {
		slog.Warn("No configuration file given, using defaults")
		return config.Default(), nil
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", path,
		"storage", cfg.Storage.Type,
		"broker", cfg.Queue.Broker)
	return cfg, nil
}
