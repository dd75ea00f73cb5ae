package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"keyviz/internal/capture"
	"keyviz/internal/config"
	"keyviz/internal/monitor"
	"keyviz/internal/sessionlog"
	"keyviz/internal/store"
	"keyviz/internal/workerutil"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...interface{})
	Infof(context.Context, string, ...interface{})
	Errorf(context.Context, string, ...interface{})
}

type wailsRuntimeLogger struct{}

func formatRuntimeLogMessage(message string, args ...interface{}) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Warn(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Info(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Error(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

var (
	configDefaultPathFn                                 = config.DefaultPath
	loadToggleShortcutFn                                = store.LoadToggleShortcut
	saveToggleShortcutFn                                = store.SaveToggleShortcut
	runtimeEventsEmitFn                                 = runtime.EventsEmit
	runtimeLogger                      appRuntimeLogger = wailsRuntimeLogger{}
	runtimeMenuUpdateApplicationMenuFn                  = runtime.MenuUpdateApplicationMenu
	runtimeWindowSetTitleFn                             = runtime.WindowSetTitle
	runtimeWindowSetPositionFn                          = runtime.WindowSetPosition
	runtimeWindowSetSizeFn                              = runtime.WindowSetSize
	runtimeQuitFn                                       = runtime.Quit
)

const shutdownWaitTimeout = 10 * time.Second

var errRuntimeNotReady = errors.New("runtime context not ready")

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)

	configPath := configDefaultPathFn()
	for _, message := range config.ConsumeDefaultPathWarnings() {
		runtimeLogger.Warningf(ctx, "%s", message)
	}
	cfg, err := config.EnsureFile(configPath)
	if err != nil {
		cfg = config.DefaultConfig()
		runtimeLogger.Warningf(ctx, "failed to load config from %s: %v", configPath, err)
	}
	a.setConfigSnapshot(cfg, configPath)
	a.initSessionLog(cfg, configPath)

	a.restoreToggleShortcut(cfg)
	if !cfg.StartListening {
		if _, err := a.toggler.ToggleState(a.state); err != nil {
			slog.Error("[capture] failed to apply start_listening", "error", err)
		}
	}

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancel = cancel
	workerutil.RunWithPanicRecovery(bgCtx, "event-dispatcher", &a.bgWG, func(ctx context.Context) error {
		return a.events.run(ctx, a.deliverDispatchItem)
	}, a.defaultRecoveryOptions())

	a.calibrateAtStartup(ctx, cfg)
	a.startCaptureWorker(bgCtx, cfg)
	if cfg.WatchStore {
		a.startStoreWatcher(bgCtx)
	}
	runtimeLogger.Infof(ctx, "keyviz started (config: %s)", configPath)
}

// restoreToggleShortcut loads the persisted chord, falling back to the
// configured chord when the store is missing or unreadable.
func (a *App) restoreToggleShortcut(cfg config.Config) {
	path := a.storePathSnapshot()
	seq, err := loadToggleShortcutFn(path)
	switch {
	case err == nil:
		slog.Info("[store] toggle shortcut restored", "shortcut", seq)
	case errors.Is(err, store.ErrNotFound):
		seq = cfg.FallbackShortcut()
		slog.Info("[store] no stored toggle shortcut, using fallback", "shortcut", seq)
	default:
		seq = cfg.FallbackShortcut()
		slog.Warn("[store] failed to read toggle shortcut, using fallback", "path", path, "error", err)
	}
	if err := a.state.SetToggleShortcut(seq); err != nil {
		slog.Error("[store] failed to apply toggle shortcut", "error", err)
	}
}

func (a *App) calibrateAtStartup(ctx context.Context, cfg config.Config) {
	if cfg.MainMonitor != "" {
		a.calibration.SetMainWindowMonitor(ctx, cfg.MainMonitor)
	}
	if cal, err := a.state.Calibration(); err == nil && cal.Name == "" {
		a.calibration.SelectPrimary(ctx)
	}
	monitors, err := a.monitors.Monitors(ctx)
	if err != nil {
		slog.Warn("[calibration] failed to list monitors for menu", "error", err)
		return
	}
	a.refreshMonitorMenu(monitors)
}

func (a *App) startCaptureWorker(ctx context.Context, cfg config.Config) {
	a.source = newInputSourceFn()
	loop := capture.NewLoop(capture.LoopOptions{
		Source:    a.source,
		State:     a.state,
		Toggler:   a.toggler,
		Publisher: capture.PublisherFunc(a.publishInputEvent),
		Normalize: cfg.Policy().Func(),
	})
	opts := a.defaultRecoveryOptions()
	// A panic inside the capture loop poisons the state; restarting cannot help.
	opts.MaxRetries = 1
	reportFatal := opts.OnFatal
	opts.OnFatal = func(worker string, err error) {
		reportFatal(worker, err)
		a.disableCapture(err)
	}
	workerutil.RunWithPanicRecovery(ctx, "input-capture", &a.bgWG, loop.Run, opts)
}

// disableCapture turns the capture feature off for the rest of the run. The
// window and bound methods keep working.
func (a *App) disableCapture(reason error) {
	if !a.captureDisabled.CompareAndSwap(false, true) {
		return
	}
	if a.source != nil {
		if err := a.source.Stop(); err != nil {
			slog.Warn("[capture] failed to stop input source", "error", err)
		}
	}
	slog.Error("[capture] input capture disabled", "error", reason)
	a.queueRetainedEvent(eventCaptureDisabled, reason.Error())
	a.events.enqueue(dispatchItem{apply: a.applyCaptureDisabledAffordance, retain: true})
}

func (a *App) startStoreWatcher(ctx context.Context) {
	w := store.NewWatcher(a.storePathSnapshot(), store.DefaultDebounce, a.onStoreShortcutChanged)
	if seq, err := a.state.ToggleShortcut(); err == nil {
		w.Remember(seq)
	}
	a.storeWatcher.Store(w)
	workerutil.RunWithPanicRecovery(ctx, "store-watcher", &a.bgWG, w.Run, a.defaultRecoveryOptions())
}

func (a *App) onStoreShortcutChanged(seq []string) {
	if err := a.state.SetToggleShortcut(seq); err != nil {
		slog.Error("[store] failed to apply reloaded toggle shortcut", "error", err)
		return
	}
	slog.Info("[store] toggle shortcut reloaded", "shortcut", seq)
	a.queueEvent(eventToggleShortcutUpdated, seq)
}

func (a *App) initSessionLog(cfg config.Config, configPath string) {
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(base, slog.LevelWarn, a.sessionLog)))

	dir := filepath.Join(filepath.Dir(configPath), sessionlog.DirName)
	path, err := a.sessionLog.Open(dir)
	if err != nil {
		slog.Warn("[session-log] failed to open session log", "dir", dir, "error", err)
		return
	}
	slog.Info("[session-log] initialized", "path", path)
}

// placeWindow moves the overlay onto m and sizes it to the monitor. Wails
// positions the window relative to the display it is on now, so the target
// origin is turned into an offset from that display first. Sizes are
// logical, so the physical size is divided by the scale.
func (a *App) placeWindow(ctx context.Context, m monitor.Info) error {
	if ctx == nil {
		return errRuntimeNotReady
	}
	monitors, err := a.monitors.Monitors(ctx)
	if err != nil {
		return fmt.Errorf("locate current monitor: %w", err)
	}
	current, err := monitor.Current(monitors)
	if err != nil {
		return fmt.Errorf("locate current monitor: %w", err)
	}
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	x, y := monitor.WindowOffset(current, m)
	runtimeWindowSetPositionFn(ctx, x, y)
	runtimeWindowSetSizeFn(ctx, int(float64(m.Width)/scale), int(float64(m.Height)/scale))
	return nil
}

func (a *App) defaultRecoveryOptions() workerutil.RecoveryOptions {
	return workerutil.RecoveryOptions{
		OnPanic: func(worker string, attempt int) {
			ctx := a.runtimeContext()
			if ctx == nil {
				return
			}
			a.emitRuntimeEventWithContext(ctx, eventWorkerPanic, map[string]any{
				"worker":  worker,
				"attempt": attempt,
			})
		},
		OnFatal: func(worker string, err error) {
			ctx := a.runtimeContext()
			if ctx == nil {
				return
			}
			a.emitRuntimeEventWithContext(ctx, eventWorkerFatal, map[string]any{
				"worker": worker,
				"error":  err.Error(),
			})
		},
		IsShutdown: a.shuttingDown.Load,
	}
}

func (a *App) shutdown(_ context.Context) {
	logCtx := a.runtimeContext()
	a.shuttingDown.Store(true)
	if a.bgCancel != nil {
		a.bgCancel()
	}
	if a.source != nil {
		if err := a.source.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "input source stop failed: %v", err)
		}
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for background workers during shutdown")
	}
	if err := a.sessionLog.Close(); err != nil {
		runtimeLogger.Warningf(logCtx, "session log close failed: %v", err)
	}
	a.setRuntimeContext(nil)
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// The waiting goroutine may outlive timeout when waitFn blocks; this is
	// only used on shutdown where completion is expected.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
