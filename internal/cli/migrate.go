package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fjod/go_storefront/internal/config"
	ordersrepo "github.com/fjod/go_storefront/internal/orders/repository"
	productrepo "github.com/fjod/go_storefront/internal/product/repository"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog and order schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			return runMigrate(cfg)
		},
	}
}

func runMigrate(cfg *config.Config) error {
	catalog, err := productrepo.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer catalog.Close()
	if err := catalog.RunMigrations(); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	slog.Info("catalog migrations applied", "path", cfg.Catalog.DBPath)

	orders, err := ordersrepo.NewRepository(postgresCredentials(cfg))
	if err != nil {
		return fmt.Errorf("open orders database: %w", err)
	}
	defer orders.Close()
	if err := orders.RunMigrations(); err != nil {
		return fmt.Errorf("migrate orders: %w", err)
	}
	slog.Info("order migrations applied", "db", cfg.Postgres.DBName)
	return nil
}

func postgresCredentials(cfg *config.Config) *ordersrepo.Credentials {
	return &ordersrepo.Credentials{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
	}
}
