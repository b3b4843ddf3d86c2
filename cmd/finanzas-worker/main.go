package main

import (
	"context"
	"os"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/session"
	"finanzas/internal/sheets"
	gsheet "finanzas/internal/sheets/google"
	sheetsmem "finanzas/internal/sheets/memory"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting finanzas-worker", "backend", cfg.DataBackend, "schedule", cfg.ExportSchedule)
	if cfg.DataBackend == backend.MemoryBackend.String() {
		logger.Warn("Memory backend is private to this process; exports will be empty")
	}

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).
		CreateBackend(context.Background(), bc)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", bc.Type)
		os.Exit(1)
	}

	sheetsLogger := logger.WithComponent(applog.ComponentSheets).Slog()
	var writer sheets.SummaryWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetBase:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, sheetsLogger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = sheetsmem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
	}

	ledger := services.NewLedger(result.Store, session.Static(""),
		services.WithLogger(logger.WithComponent(applog.ComponentLedger).Slog()))
	processor := services.NewExportProcessor(ledger, writer, result.Store, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
		BatchSize:    cfg.ExportBatchSize,
		MaxRetries:   services.DefaultExportProcessorConfig().MaxRetries,
	}, logger.Slog())

	var consumer worker.ChangeConsumer
	if result.Publisher != nil {
		consumer = result.Publisher
	}
	w, err := worker.NewExportWorker(consumer, processor, cfg.ExportSchedule, logger.Slog())
	if err != nil {
		logger.Error("Failed to create export worker", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	runErr := w.Run(ctx)
	if runErr != nil {
		logger.Error("Export worker stopped", "error", runErr)
	} else {
		<-done
	}

	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", "error", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
