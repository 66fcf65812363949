package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/omprussia/weblate-omp/database"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	cmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate down (0 = all)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrateUp(cmd, v)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert database migrations",
			Long: `Revert database migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Revert the last migration
  weblate-omp migrate down --config config.yaml --num-steps 1 --yes`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrateDown(cmd, v)
			},
		},
	)
	return cmd
}

func openMigrator(v *viper.Viper) (database.Migrator, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}
	m, err := database.NewFromConnectionString(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	slog.Info("Connected to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database)
	return m, nil
}

func closeMigrator(m database.Migrator) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		slog.Error("Error closing migrator", "error", err)
	}
}

func runMigrateUp(cmd *cobra.Command, v *viper.Viper) error {
	ok, err := confirmed(cmd, "Apply pending migrations?")
	if err != nil || !ok {
		return err
	}

	m, err := openMigrator(v)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	slog.Info("Applying database migrations...")
	if err := database.MigrateUp(m); err != nil {
		return err
	}
	logVersion(m)
	return nil
}

func runMigrateDown(cmd *cobra.Command, v *viper.Viper) error {
	steps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	prompt := "WARNING: This will migrate down ALL steps and may result in complete data loss. Continue?"
	if steps > 0 {
		prompt = fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", steps)
	}
	ok, err := confirmed(cmd, prompt)
	if err != nil || !ok {
		return err
	}

	m, err := openMigrator(v)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if steps == 0 {
		slog.Warn("Migrating down all steps - this will remove all schema!")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("Database schema has been completely removed")
		return nil
	}

	slog.Info("Migrating down", "steps", steps)
	if err := database.MigrateDown(m, int(steps)); err != nil { // #nosec G115 -- flag values stay far below MaxInt
		return err
	}
	logVersion(m)
	return nil
}

func logVersion(m database.Migrator) {
	version, dirty, err := m.Version()
	switch {
	case err != nil:
		slog.Warn("Unable to get migration version", "error", err)
	case dirty:
		slog.Warn("Database is in a dirty state", "version", version)
	default:
		slog.Info("Current migration version", "version", version)
	}
}

// confirmed asks on stdin unless --yes is set.
func confirmed(cmd *cobra.Command, prompt string) (bool, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return true, nil
	}
	ok, err := ask(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
	if err == nil && !ok {
		slog.Info("Migration cancelled by user")
	}
	return ok, err
}

func ask(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s (yes/no): ", prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return true, nil
	default:
		return false, nil
	}
}
