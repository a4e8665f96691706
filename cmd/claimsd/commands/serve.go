package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/itwhiprentals/claims-service/internal/app"
	"github.com/itwhiprentals/claims-service/internal/clock"
	"github.com/itwhiprentals/claims-service/internal/collab"
	"github.com/itwhiprentals/claims-service/internal/storage/postgres"
	transporthttp "github.com/itwhiprentals/claims-service/internal/transport/http"
	"github.com/itwhiprentals/claims-service/migrations"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the HTTP API together with the deadline sweeper and the
// notification dispatcher.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the claims API, deadline sweeper and notification dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.Default()
		cfg := LoadConfig(logger)

		startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			return err
		}
		if err := migrations.Apply(startupCtx, pool); err != nil {
			return err
		}

		clk := clock.NewSystem()
		holdRepo := postgres.NewHoldRepository(pool)
		claimRepo := postgres.NewClaimRepository(pool)
		outboxRepo := postgres.NewOutboxRepository(pool)

		holdSvc := app.NewHoldService(holdRepo, clk)
		claimSvc := app.NewClaimService(claimRepo, holdSvc, outboxRepo, clk)
		depositSvc := app.NewDepositService(
			collab.LogPaymentProcessor{Logger: logger},
			collab.LogWalletLedger{Logger: logger},
			outboxRepo,
			clk,
			logger,
		)
		sweeper := app.NewDeadlineSweeper(claimSvc, clk, logger)
		dispatcher := app.NewOutboxDispatcher(
			outboxRepo,
			collab.LogNotifier{Logger: logger},
			collab.AllowAllPreferences{},
			clk,
			logger,
		)

		mux := http.NewServeMux()
		mux.HandleFunc("/health", transporthttp.HealthHandler)
		mux.Handle("/claims", transporthttp.HandleFileClaim(claimSvc))
		mux.Handle("/claims/", transporthttp.HandleClaimActions(claimSvc))
		mux.Handle("/accounts/", transporthttp.HandleAccountRestricted(holdSvc))
		mux.Handle("/deposits/release", transporthttp.HandleDepositRelease(depositSvc))
		mux.Handle("/", transporthttp.NotFoundHandler())

		handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

		server := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: handler,
		}

		workerCtx, stopWorkers := context.WithCancel(context.Background())
		defer stopWorkers()
		go sweeper.Run(workerCtx, cfg.SweepInterval)
		go dispatcher.Run(workerCtx, cfg.DispatchInterval)

		logger.Printf("claims api listening on :%s", cfg.Port)

		srvErr := make(chan error, 1)
		go func() {
			srvErr <- server.ListenAndServe()
		}()

		stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-srvErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("server error: %v", err)
			}
		case <-stopCtx.Done():
			logger.Printf("shutdown signal received, stopping server")
		}

		stopWorkers()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server shutdown error: %v", err)
		}
		logger.Printf("server stopped")
		return nil
	},
}
