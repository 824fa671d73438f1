package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/scribesearch/scribe-agent/internal/library"
)

type Tray struct {
	syncer *library.Syncer
	logger *slog.Logger

	statusItem  *systray.MenuItem
	mediaItem   *systray.MenuItem
	watchedItem *systray.MenuItem
	pauseItem   *systray.MenuItem

	mu sync.Mutex

	onSyncNow func() error
	onQuit    func()
}

type TrayConfig struct {
	Syncer    *library.Syncer
	Logger    *slog.Logger
	OnSyncNow func() error
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		syncer:    cfg.Syncer,
		logger:    cfg.Logger,
		onSyncNow: cfg.OnSyncNow,
		onQuit:    cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Scribe")
	systray.SetTooltip("Scribe Agent")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.mediaItem = systray.AddMenuItem("Media: 0", "Media in local library")
	t.mediaItem.Disable()

	t.watchedItem = systray.AddMenuItem("Watching: 0", "Media being polled for status")
	t.watchedItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Sync", "Pause library sync")
	t.mu.Unlock()

	syncNowItem := systray.AddMenuItem("Sync Now", "Refresh the library from the backend")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Scribe Agent")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-syncNowItem.ClickedCh:
				t.handleSyncNow()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.syncer == nil {
		return
	}

	if t.syncer.IsPaused() {
		t.syncer.Resume()
		t.pauseItem.SetTitle("Pause Sync")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.syncer.Pause()
		t.pauseItem.SetTitle("Resume Sync")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) handleSyncNow() {
	if t.onSyncNow != nil {
		if err := t.onSyncNow(); err != nil {
			t.logger.Error("manual sync failed", "error", err)
		}
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.statusItem == nil {
		return
	}
	if t.syncer != nil && t.syncer.IsPaused() {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateMediaCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mediaItem == nil {
		return
	}
	t.mediaItem.SetTitle(fmt.Sprintf("Media: %d", count))
}

func (t *Tray) UpdateWatchedCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.watchedItem == nil {
		return
	}
	t.watchedItem.SetTitle(fmt.Sprintf("Watching: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
