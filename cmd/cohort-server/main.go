package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/cohort/internal/config"
	"github.com/ehr/cohort/internal/domain/terminology"
	"github.com/ehr/cohort/internal/platform/db"
	"github.com/ehr/cohort/internal/platform/synth"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "cohort-server",
		Short:        "OMOP cohort statistics API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the cohort statistics API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the OMOP tables",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			database, err := db.Open(ctx, cfg.DSN(), cfg.DBMaxOpenConns)
			if err != nil {
				return err
			}
			defer database.Close()

			count, err := db.NewMigrator(database, db.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			database, err := db.Open(ctx, cfg.DSN(), cfg.DBMaxOpenConns)
			if err != nil {
				return err
			}
			defer database.Close()

			statuses, err := db.NewMigrator(database, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for %s\n", cfg.DuckDBPath)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the OMOP tables with a synthetic dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			persons, _ := cmd.Flags().GetInt("persons")
			seed, _ := cmd.Flags().GetInt64("seed")
			if !cmd.Flags().Changed("persons") {
				persons = cfg.SeedPersons
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.SeedRandomSeed
			}

			ctx := context.Background()
			database, err := db.Open(ctx, cfg.DSN(), cfg.DBMaxOpenConns)
			if err != nil {
				return err
			}
			defer database.Close()

			sum, err := synth.NewGenerator(database, newLogger(cfg)).Generate(ctx, synth.Options{
				Persons: persons,
				Seed:    seed,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Seeded %s: %d persons (%d cases), %d conditions, %d measurements, %d concepts.\n",
				cfg.DuckDBPath, sum.Persons, sum.Cases, sum.Conditions, sum.Measurements, sum.Concepts)
			return nil
		},
	}
	cmd.Flags().Int("persons", synth.DefaultPersons, "Number of persons to generate")
	cmd.Flags().Int64("seed", 42, "Random seed")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := cfg.Level(); err == nil {
		logger = logger.Level(level)
	}
	return logger
}

// openDatabase opens DuckDB and prepares it according to AUTO_MIGRATE and
// SEED_IF_EMPTY.
func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	database, err := db.Open(ctx, cfg.DSN(), cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		n, err := db.NewMigrator(database, db.Migrations()).Up(ctx)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		if n > 0 {
			logger.Info().Int("count", n).Msg("applied migrations")
		}
	}

	if cfg.SeedIfEmpty {
		seeded, err := synth.NewGenerator(database, logger).SeedIfEmpty(ctx, synth.Options{
			Persons: cfg.SeedPersons,
			Seed:    cfg.SeedRandomSeed,
		})
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		if seeded {
			logger.Info().Int("persons", cfg.SeedPersons).Msg("seeded empty database with synthetic data")
		}
	}
	return database, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	catalog, err := terminology.LoadCatalog(cfg.ConceptSetsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load concept sets")
	}

	// Database
	ctx := context.Background()
	database, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()
	logger.Info().Str("path", cfg.DuckDBPath).Str("access_mode", cfg.DuckDBAccessMode).Msg("opened database")

	e := newServer(cfg, database, catalog, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
