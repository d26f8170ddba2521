package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicebigrose/stock-analysis-system/internal/api"
	"github.com/nicebigrose/stock-analysis-system/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API server.

Endpoints:
  GET    /health
  GET    /api/screen             - ranked screen (?top, ?filter, ?symbols)
  GET    /api/scan               - technical scan (?kind, ?threshold)
  GET    /api/analyze/{symbol}   - full analysis of one symbol
  GET    /api/watchlist          - list, POST to add, DELETE /{symbol} to remove
  GET    /api/portfolio          - valuation (+ /performance, /suggestions, /risk, /history)
  POST   /api/portfolio/deposit  - add cash (+ /buy, /sell)
  GET    /ws/screen              - streamed screening progress

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run the scheduled jobs")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stock Analysis API Server ===")

	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	ledger, err := a.openLedger(ctx)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	// Create handlers
	workers := a.workers(0)
	screening := handlers.NewScreeningHandler(a.screener, a.scanner, a.holder, workers, a.log)
	router := api.NewRouter(api.Handlers{
		Screening: screening,
		Portfolio: handlers.NewPortfolioHandler(ledger, a.valuer, a.advisor, a.holder.Config().Portfolio, a.log),
		Stream:    handlers.NewStreamHandler(screening, a.log),
	}, a.log)

	server := api.New(a.cfg, a.log, router)

	if apiWithScheduler {
		sched, err := a.newScheduler()
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
