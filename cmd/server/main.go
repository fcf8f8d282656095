package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tripops/attribution/internal/config"
	"github.com/tripops/attribution/internal/consistency"
	"github.com/tripops/attribution/internal/httpx"
	"github.com/tripops/attribution/internal/ingest"
	"github.com/tripops/attribution/internal/report"
	"github.com/tripops/attribution/internal/store"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open store", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	reports := report.NewService(st, logger, cfg.AverageDealValue, cfg.MatrixRowCap)
	checker := consistency.NewChecker(st, logger, cfg.AverageDealValue)
	ing := ingest.NewService(st, logger)

	r := httpx.NewRouter(logger, reports, checker, ing, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server",
		slog.String("port", cfg.Port),
		slog.String("db", cfg.DBPath),
		slog.Float64("average_deal_value", cfg.AverageDealValue))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
