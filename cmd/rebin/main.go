// ReBin Pro daemon - the waste-sorting backend service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rebinpro/rebin/internal/api"
	"github.com/rebinpro/rebin/internal/config"
	"github.com/rebinpro/rebin/internal/detect"
	"github.com/rebinpro/rebin/internal/logging"
	"github.com/rebinpro/rebin/internal/metrics"
	"github.com/rebinpro/rebin/internal/reason"
	"github.com/rebinpro/rebin/internal/speech"
	"github.com/rebinpro/rebin/internal/storage"
)

var (
	configPath string
	addr       string
	dataDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rebin",
		Short: "ReBin Pro - AI-powered waste sorting backend",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logging.Info("Starting ReBin Pro")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := storage.Open(storage.Config{Path: cfg.DBPath()})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Seed failures are recoverable; the endpoints degrade gracefully
	if err := storage.NewPolicyStore(db).EnsureSeeds(); err != nil {
		logging.Warn("policy seeding failed: %v", err)
	}
	if err := storage.NewChallengeStore(db).EnsureSeeds(); err != nil {
		logging.Warn("challenge seeding failed: %v", err)
	}

	reasoner := reason.NewClient(reason.Config{
		APIKey:  cfg.Reasoning.APIKey,
		Model:   cfg.Reasoning.Model,
		BaseURL: cfg.Reasoning.BaseURL,
		Timeout: cfg.Reasoning.Timeout,
	})
	if !reasoner.IsConfigured() {
		logging.Warn("reasoning API key not set, /explain will fail until configured")
	}

	synthesizer := speech.NewClient(speech.Config{
		APIKey:  cfg.Speech.APIKey,
		BaseURL: cfg.Speech.BaseURL,
		Timeout: cfg.Speech.Timeout,
	})
	if !synthesizer.IsConfigured() {
		logging.Warn("speech API key not set, narration will be text-only")
	}

	server := api.New(api.Config{
		Addr:           cfg.Server.Addr,
		FrontendOrigin: cfg.Server.FrontendOrigin,
		DB:             db,
		Detector: detect.NewClient(detect.Config{
			URL:     cfg.Detector.URL,
			Timeout: cfg.Detector.Timeout,
		}),
		Reasoner:    reasoner,
		Synthesizer: synthesizer,
		Metrics:     metrics.NewManager(),
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logging.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logging.Error("shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
