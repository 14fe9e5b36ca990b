package main

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"storefront/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var sourceDir string

func main() {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply storefront schema migrations",
	}
	root.PersistentFlags().StringVar(&sourceDir, "path", "migrations", "migration files directory")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newMigrate()
				if err != nil {
					return err
				}
				return up(m)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back one migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newMigrate()
				if err != nil {
					return err
				}
				if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return err
				}
				log.Println("Rolled back one migration")
				return nil
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark the schema as VERSION and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				m, err := newMigrate()
				if err != nil {
					return err
				}
				return m.Force(version)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newMigrate()
				if err != nil {
					return err
				}
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty=%t)\n", version, dirty)
				return nil
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newMigrate() (*migrate.Migrate, error) {
	config.LoadConfig()
	cfg := config.GlobalConfig.Database
	dsn := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=" + cfg.SSLMode,
	}).String()

	return migrate.New("file://"+sourceDir, dsn)
}

func up(m *migrate.Migrate) error {
	err := m.Up()
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		log.Println("Migration successful")
		return nil
	}

	// 上次迁移中断时数据库处于 dirty 状态，回退到该版本前一版后重试
	var dirty migrate.ErrDirty
	if !errors.As(err, &dirty) {
		return err
	}
	prev := dirty.Version - 1
	if prev < 1 {
		prev = database.NilVersion
	}
	log.Printf("Database is dirty at version %d, forcing %d and retrying", dirty.Version, prev)
	if err := m.Force(prev); err != nil {
		return fmt.Errorf("force version: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Println("Migration successful")
	return nil
}
