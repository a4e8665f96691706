package commands

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/itwhiprentals/claims-service/migrations"
)

// MigrateCmd applies pending schema migrations and exits.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.Default()
		cfg := LoadConfig(logger)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return err
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			return err
		}
		logger.Printf("migrations applied")
		return nil
	},
}
