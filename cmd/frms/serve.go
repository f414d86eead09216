package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/frms/internal/api"
	"github.com/goodtune/frms/internal/compliance"
	"github.com/goodtune/frms/internal/metrics"
	"github.com/goodtune/frms/internal/policy"
	"github.com/goodtune/frms/internal/policy/opa"
	"github.com/goodtune/frms/internal/storage"
	"github.com/goodtune/frms/internal/systemd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FRMS compliance service",
	Long: `Keep the configured pilot's report current and export it as Prometheus
metrics. Reports are recomputed when records change and at each day rollover.
When api.enabled is set, reports, roster checks and record writes are also
served as JSON over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting FRMS")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	store, err := openStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().Str("type", cfg.Storage.Type).Msg("Storage initialized")

	svc, err := newService(cfg, store.Records(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize compliance service: %w", err)
	}

	if cfg.Pilot.ID != "" && cfg.Pilot.Fleet != "" {
		svc.Track(cfg.Configuration())
		logger.Info().
			Str("pilot_id", cfg.Pilot.ID).
			Str("fleet", cfg.Pilot.Fleet).
			Msg("Tracking pilot")
	} else {
		logger.Warn().Msg("No pilot configured (pilot.id and pilot.fleet); nothing to track")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := svc.RefreshAll(ctx, "startup"); err != nil {
		logger.Error().Err(err).Msg("Initial report evaluation failed")
	}

	// Roster gate, loaded here so SIGHUP can reload it
	var gate *policy.Engine
	if cfg.Policy.Enabled {
		gate, err = policy.NewEngine(opa.Config{PolicyDir: cfg.Policy.OPAPolicyDir}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize roster policy: %w", err)
		}
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}

	rolloverScheduler, err := compliance.NewRolloverScheduler(svc, cfg.Schedule.RolloverTime, loc, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rollover scheduler: %w", err)
	}
	rolloverScheduler.Start()

	if watcher, ok := store.(storage.Watcher); ok {
		go func() {
			if err := svc.Watch(ctx, watcher); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Record change watch stopped")
			}
		}()
	} else {
		logger.Info().Msg("Storage does not publish changes; reports refresh at rollover only")
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		// Use systemd socket-activated listener if available
		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}

		logger.Info().Msgf("Metrics: http://%s/metrics", metricsAddr)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiAddr := fmt.Sprintf("%s:%d", cfg.API.BindAddress, cfg.API.Port)
		apiServer = api.NewServer(api.Config{ListenAddr: apiAddr}, svc, store.Records(), gate, logger)

		if sdListeners.Activated && sdListeners.API != nil {
			apiServer.SetListener(sdListeners.API)
		}

		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API Server: %w", err)
		}

		logger.Info().Msgf("API: http://%s/api/pilots", apiAddr)
	}

	go systemd.RunWatchdog(ctx, logger)

	logger.Info().Msg("FRMS startup complete")

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			logger.Info().Msg("Shutdown signal received, gracefully stopping...")
			break
		}

		logger.Info().Msg("SIGHUP received, reloading...")
		_ = systemd.NotifyReloading()
		reload(ctx, svc, gate)
		_ = systemd.NotifyReady()
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error stopping API Server")
		}
		shutdownCancel()
	}

	cancel()
	rolloverScheduler.Stop()

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("FRMS stopped")

	return nil
}

// reload re-reads roster policies and recomputes every tracked report
func reload(ctx context.Context, svc *compliance.Service, gate *policy.Engine) {
	if gate != nil {
		if err := gate.Reload(); err != nil {
			log.Error().Err(err).Msg("Failed to reload policies")
		} else {
			log.Info().Msg("Policies reloaded successfully")
		}
	}

	svc.Purge()
	if err := svc.RefreshAll(ctx, "reload"); err != nil {
		log.Error().Err(err).Msg("Failed to recompute reports")
	}
}
