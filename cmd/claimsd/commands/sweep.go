package commands

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/itwhiprentals/claims-service/internal/app"
	"github.com/itwhiprentals/claims-service/internal/clock"
	"github.com/itwhiprentals/claims-service/internal/storage/postgres"
)

// SweepCmd runs a single deadline sweep and exits; useful for cron-style
// deployments and for draining a backlog by hand.
var SweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue claim response windows once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.Default()
		cfg := LoadConfig(logger)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return err
		}

		clk := clock.NewSystem()
		holdSvc := app.NewHoldService(postgres.NewHoldRepository(pool), clk)
		claimSvc := app.NewClaimService(postgres.NewClaimRepository(pool), holdSvc, postgres.NewOutboxRepository(pool), clk)
		sweeper := app.NewDeadlineSweeper(claimSvc, clk, logger)

		expired, err := sweeper.SweepOnce(ctx)
		if err != nil {
			return err
		}
		logger.Printf("sweep complete, expired %d claim(s)", expired)
		return nil
	},
}
