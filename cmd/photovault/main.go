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

	"photovault/internal/appinfo"
	"photovault/internal/config"
	"photovault/internal/database"
	"photovault/internal/handlers"
	"photovault/internal/middleware"
	"photovault/internal/objstore"
	"photovault/internal/syncer"
	"photovault/internal/upload"
	"photovault/pkg/cache"
	"photovault/pkg/logger"
	"photovault/pkg/utils"
)

func main() {
	utils.LoadEnv()

	rootCmd := &cobra.Command{
		Use:          "photovault",
		Short:        "Per-user photo metadata vault with collision detection and remote sync",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd(), backupCmd(), restoreCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired subsystems shared by every subcommand.
type app struct {
	manager *database.Manager
	backend objstore.Backend
	engine  *syncer.Engine
	orch    *upload.Orchestrator
}

func bootstrap() (*app, error) {
	config.Load()
	cfg := config.AppConfig

	manager := database.NewManager(cfg.Database.Dir)

	backend, err := objstore.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	engine := syncer.NewEngine(manager, backend, syncer.Options{
		Enabled:        cfg.Sync.Enabled,
		RemotePrefix:   cfg.Sync.RemotePrefix,
		MaxRetries:     cfg.Sync.MaxRetries,
		RetryBaseDelay: config.Duration(cfg.Sync.RetryBaseDelay, 500*time.Millisecond),
		RetryMaxDelay:  config.Duration(cfg.Sync.RetryMaxDelay, 30*time.Second),
		AttemptTimeout: config.Duration(cfg.Sync.AttemptTimeout, 60*time.Second),
	})

	orch := upload.NewOrchestrator(manager, backend, engine, upload.Options{
		MaxFileSize:       utils.SizeToBytes(cfg.Upload.MaxFileSize, 25<<20),
		MaxBatchFiles:     cfg.Upload.MaxBatchFiles,
		CommitParallelism: cfg.Upload.CommitParallelism,
		StorageTimeout:    config.Duration(cfg.Upload.StorageTimeout, 30*time.Second),
	})

	return &app{manager: manager, backend: backend, engine: engine, orch: orch}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("STARTUP_LOG_ACTIVE") != "false" {
				printBanner()
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			cfg := config.AppConfig

			appinfo.StartTime = time.Now()

			appCache := cache.New(
				cfg.Cache.Enabled,
				cfg.Cache.MaxCapacity,
				config.Duration(cfg.Cache.TTL, 5*time.Minute),
			)

			h := handlers.New(a.orch, appCache)

			mux := http.NewServeMux()
			h.Register(mux)

			janitorStop := make(chan struct{})
			go a.orch.StartJanitor(upload.DefaultSweepInterval, janitorStop)

			finalHandler := middleware.RateLimitMiddleware(
				middleware.CorsMiddleware(
					middleware.LoggerMiddleware(mux)))

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      finalHandler,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.LogServerStart(cfg.Server.Port, cfg.GetBaseUrl())
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			logger.LogInfo("Shutting down: draining requests and in-flight backups...")
			close(janitorStop)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)

			// A final burst of writes must still reach the remote copy.
			a.engine.Wait()
			a.manager.Close()

			logger.LogSuccess("Shutdown complete.")
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <user-id>",
		Short: "Snapshot one user's metadata store and upload it to the remote copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.manager.Close()

			if err := a.engine.BackupNow(cmd.Context(), args[0]); err != nil {
				return err
			}
			logger.LogSuccess("Backup for user %s completed.", args[0])
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <user-id>",
		Short: "Fetch the remote metadata copy for a user that has no local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.manager.Close()

			if err := a.engine.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			logger.LogSuccess("Restore for user %s completed.", args[0])
			return nil
		},
	}
}
