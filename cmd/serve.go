package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Saai416/CSV-Insights-dashboard/internal/ai"
	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
	"github.com/Saai416/CSV-Insights-dashboard/internal/logging"
	"github.com/Saai416/CSV-Insights-dashboard/internal/report"
	"github.com/Saai416/CSV-Insights-dashboard/internal/server"
	"github.com/Saai416/CSV-Insights-dashboard/internal/store"
)

var flagListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the CSV Insights HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return errors.New("configuration not loaded")
		}
		logging.Setup(cfg.LogLevel, cfg.LogFormat)
		logger := slog.Default()

		if cfg.APIKey == "" {
			logger.Warn("no generation api key configured; insights will be unavailable")
		}

		aiClient := ai.NewClient(ai.Config{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			Model:            cfg.Model,
			HTTPTimeout:      time.Duration(cfg.HTTPTimeoutSec) * time.Second,
			RetryMaxAttempts: cfg.RetryMaxAttempts,
			RetryBaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
			RetryMaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
			MaxTokens:        cfg.MaxTokens,
			Temperature:      cfg.Temperature,
		})
		gen := insight.NewClient(aiClient, time.Duration(cfg.HTTPTimeoutSec)*time.Second)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var st report.Store
		if cfg.DatabaseURL != "" {
			pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pg.Close()
			st = pg
			logger.Info("using postgres store")
		} else {
			st = store.NewMemory()
			logger.Info("using in-memory store; reports are lost on restart")
		}

		svc := report.NewService(st, gen, report.Config{
			MaxUploadBytes:   cfg.MaxUploadBytes(),
			MaxStoredReports: cfg.MaxStoredReports,
			DigestOptions: digest.Options{
				SampleRows:  cfg.SampleRows,
				TopK:        cfg.TopValues,
				MaxColumns:  cfg.MaxDigestColumns,
				BudgetBytes: cfg.DigestBudgetBytes,
			},
			ContextTokenBudget: cfg.ContextTokenBudget,
		}, logger)

		addr := cfg.ListenAddr
		if flagListenAddr != "" {
			addr = flagListenAddr
		}
		srv := server.New(svc, aiClient, addr)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagListenAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
