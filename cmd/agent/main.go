package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/scribesearch/scribe-agent/internal/api"
	"github.com/scribesearch/scribe-agent/internal/backend"
	"github.com/scribesearch/scribe-agent/internal/cache"
	"github.com/scribesearch/scribe-agent/internal/config"
	"github.com/scribesearch/scribe-agent/internal/db"
	"github.com/scribesearch/scribe-agent/internal/export"
	"github.com/scribesearch/scribe-agent/internal/library"
	"github.com/scribesearch/scribe-agent/internal/logging"
	"github.com/scribesearch/scribe-agent/internal/search"
	"github.com/scribesearch/scribe-agent/internal/status"
	"github.com/scribesearch/scribe-agent/internal/ui"
	"github.com/scribesearch/scribe-agent/internal/watcher"
	"github.com/scribesearch/scribe-agent/internal/ws"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting scribe agent",
		"version", Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"query_api", cfg.QueryAPIURL(),
		"upload_api", cfg.UploadAPIURL(),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                     SCRIBE AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	queryClient := backend.NewQueryClient(cfg.QueryAPIURL(), logging.WithComponent(logger, "query_client"))
	uploadClient := backend.NewUploadClient(cfg.UploadAPIURL(), logging.WithComponent(logger, "upload_client"))

	store := cache.New()
	libSvc := library.NewService(repo, uploadClient, store, logger)
	searchSvc := search.NewService(queryClient, store, logger)
	manager := status.NewManager(queryClient, cfg.PollInterval(), logger)
	hub := ws.NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Status events flow into the library mirror and out to connected UIs.
	manager.Subscribe(func(ev status.Event) {
		if ev.Snapshot.Status != nil {
			if err := libSvc.ApplyStatus(ctx, ev.MediaID, ev.Snapshot.Status.Status); err != nil {
				logger.Error("apply status to library", "media_id", ev.MediaID, "error", err)
			}
		}
		hub.Broadcast(ws.Event{
			Type:    ws.EventStatusChanged,
			MediaID: ev.MediaID,
			Data:    api.SnapshotToResponse(ev.MediaID, ev.Snapshot),
		})
	})

	syncer := library.NewSyncer(libSvc, cfg.SyncInterval(), logger)
	syncer.OnSync = func(count int) {
		hub.Broadcast(ws.Event{
			Type: ws.EventLibrarySynced,
			Data: map[string]interface{}{"media_count": count},
		})
	}
	go syncer.Start(ctx)

	if cfg.DropDir() != "" {
		if err := startDropFolder(ctx, cfg, uploadClient, libSvc, manager, store, logger); err != nil {
			logger.Warn("drop folder disabled", "path", logging.SanitizePath(cfg.DropDir()), "error", err)
		}
	}

	exporter, err := export.NewWriter(cfg.ExportDir())
	if err != nil {
		return fmt.Errorf("failed to prepare export directory: %w", err)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Library:      libSvc,
		Syncer:       syncer,
		Status:       manager,
		Search:       searchSvc,
		Uploader:     uploadClient,
		Exporter:     exporter,
		Hub:          hub,
		Repository:   repo,
		Cache:        store,
		Logger:       logger,
		StartTime:    startTime,
		DefaultModel: cfg.DefaultModel(),
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Syncer: syncer,
			Logger: logger,
			OnSyncNow: func() error {
				_, err := libSvc.Sync(context.Background())
				return err
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
		go updateTrayCounts(ctx, tray, libSvc, manager)
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()
	manager.StopAll()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// startDropFolder uploads media files copied into the drop directory as if
// they had been POSTed to /upload.
func startDropFolder(ctx context.Context, cfg config.Config, uploadClient *backend.UploadClient, libSvc *library.Service, manager *status.Manager, store *cache.Store, logger *slog.Logger) error {
	w := watcher.NewPollWatcher(logger, watcher.DefaultScanInterval)

	w.OnChange(func(path string, event watcher.EventType) {
		if event != watcher.EventCreate {
			return
		}

		file, err := os.Open(path)
		if err != nil {
			logger.Error("open dropped file", "path", logging.SanitizePath(path), "error", err)
			return
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			logger.Error("stat dropped file", "path", logging.SanitizePath(path), "error", err)
			return
		}

		fileName := filepath.Base(path)
		receipt, err := uploadClient.UploadMedia(ctx, backend.MediaUpload{
			FileName: fileName,
			Content:  file,
			Model:    cfg.DefaultModel(),
		})
		if err != nil {
			logger.Error("upload dropped file", "path", logging.SanitizePath(path), "error", err)
			return
		}

		mediaID := receipt.MediaID
		if mediaID == "" {
			mediaID = uuid.NewString()
		}
		if err := libSvc.RecordUpload(ctx, mediaID, fileName, "", info.Size(), cfg.DefaultModel()); err != nil {
			logger.Error("record dropped upload", "media_id", mediaID, "error", err)
		}
		if receipt.MediaID != "" {
			if _, err := manager.Watch(receipt.MediaID, func() {
				store.InvalidatePrefix("knowledge/")
			}); err != nil {
				logger.Error("watch dropped upload", "media_id", receipt.MediaID, "error", err)
			}
		}
		logger.Info("dropped file uploaded", "file_name", fileName, "media_id", mediaID)
	})

	return w.Watch(ctx, cfg.DropDir())
}

func updateTrayCounts(ctx context.Context, tray *ui.Tray, libSvc *library.Service, manager *status.Manager) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count, err := libSvc.Count(ctx); err == nil {
				tray.UpdateMediaCount(count)
			}
			tray.UpdateWatchedCount(manager.Count())
		}
	}
}

func ensureAuthToken(repo library.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
