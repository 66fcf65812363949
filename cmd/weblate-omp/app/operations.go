package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	omp "github.com/omprussia/weblate-omp/internal/app"
	"github.com/omprussia/weblate-omp/internal/config"
)

// withComponents runs fn against freshly wired components. Jobs run inline
// when the configured broker is process local, since nothing would consume
// them after the command exits.
func withComponents(ctx context.Context, v *viper.Viper, fn func(*omp.Components) error) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	opts := []omp.Option{omp.WithConfig(cfg)}
	if cfg.Queue.Broker == config.BrokerInMemory {
		opts = append(opts, omp.WithEagerJobs())
	}
	c, err := omp.NewComponents(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(context.Background()); err != nil {
			slog.Error("Failed to release components", "error", err)
		}
	}()
	return fn(c)
}

func newUpdateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "update PROJECT COMPONENT",
		Short: "Update a component from its upstream repository",
		Long: `Update a component from its upstream repository and run the pre and post
update handlers of its addons.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), v, func(c *omp.Components) error {
				return c.Updater.UpdateBySlug(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newDailyCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Run the daily handlers of every installed addon once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd.Context(), v, func(c *omp.Components) error {
				return c.Updater.RunDaily(cmd.Context())
			})
		},
	}
}

func newInstallAddonCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-addon",
		Short: "Install an addon on the components of projects",
		Long: `Install an addon on every component of the given projects, or of all
projects when no --project is given. Components already carrying the addon
are left untouched.

Example:
  weblate-omp install-addon --addon weblate.synchronize.translations \
    --user admin --project web --configuration '{"mode":"suggest"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addon, _ := cmd.Flags().GetString("addon")
			username, _ := cmd.Flags().GetString("user")
			projects, _ := cmd.Flags().GetStringSlice("project")
			raw, _ := cmd.Flags().GetString("configuration")

			configuration, err := parseConfiguration(raw)
			if err != nil {
				return err
			}

			return withComponents(cmd.Context(), v, func(c *omp.Components) error {
				installed, err := c.Installer.InstallForProjects(cmd.Context(), addon, username, projects, configuration)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Installed %s on %d component(s)\n", addon, installed)
				return err
			})
		},
	}
	cmd.Flags().String("addon", "", "Name of the addon to install")
	cmd.Flags().String("user", "", "User installing the addon")
	cmd.Flags().StringSlice("project", nil, "Project slug, repeatable")
	cmd.Flags().String("configuration", "", "Addon configuration as a JSON object")
	_ = cmd.MarkFlagRequired("addon")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func parseConfiguration(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var configuration map[string]any
	if err := json.Unmarshal([]byte(raw), &configuration); err != nil {
		return nil, fmt.Errorf("invalid addon configuration: %w", err)
	}
	return configuration, nil
}
