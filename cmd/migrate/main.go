// Command migrate applies the service schema to a PostgreSQL database, or to
// a local SQLite file for development sandboxes.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stashspot/service-booking/internal/config"
	"github.com/stashspot/service-booking/internal/platform/database"
	"github.com/stashspot/service-booking/internal/repository"
)

var (
	driver     string
	sqlitePath string
)

func main() {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the booking service database schema",
		RunE:  runMigrate,
	}
	root.Flags().StringVar(&driver, "driver", "postgres", "database driver: postgres or sqlite")
	root.Flags().StringVar(&sqlitePath, "sqlite-path", "booking.db", "sqlite database file (driver=sqlite)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	db, err := open()
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&repository.UnitModel{},
		&repository.BookingModel{},
		&repository.RuleModel{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	cmd.Println("schema migrated")
	return nil
}

func open() (*gorm.DB, error) {
	switch driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	case "postgres":
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		dsn := database.PostgresConfig{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			DBName:   cfg.DB.DBName,
			SSLMode:  cfg.DB.SSLMode,
		}.DSN()
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
}
