package main

import (
	"log/slog"
	"slices"

	"keyviz/internal/monitor"
	"keyviz/internal/sessionlog"
)

// Log forwards a diagnostic line from the frontend.
func (a *App) Log(message string) {
	slog.Info("[frontend] " + message)
}

// SetToggleShortcut replaces the toggle chord. The sequence is stored as
// given; an empty sequence disables chord toggling. Persisting to the key
// event store is best effort. An error is returned only when the capture
// state is unusable.
func (a *App) SetToggleShortcut(shortcut []string) error {
	seq := slices.Clone(shortcut)
	if seq == nil {
		seq = []string{}
	}
	if err := a.state.SetToggleShortcut(seq); err != nil {
		slog.Error("[command] failed to set toggle shortcut", "error", err)
		return err
	}
	slog.Info("[command] toggle shortcut updated", "shortcut", seq)

	if w := a.storeWatcher.Load(); w != nil {
		w.Remember(seq)
	}
	path := a.storePathSnapshot()
	if path == "" {
		return nil
	}
	if err := saveToggleShortcutFn(path, seq); err != nil {
		slog.Warn("[store] failed to persist toggle shortcut", "path", path, "error", err)
	}
	return nil
}

// GetToggleShortcut returns the current chord.
func (a *App) GetToggleShortcut() []string {
	seq, err := a.state.ToggleShortcut()
	if err != nil {
		slog.Error("[command] failed to read toggle shortcut", "error", err)
		return []string{}
	}
	return seq
}

// SetMainWindowMonitor moves the overlay to the named monitor and updates
// the calibration used for pointer coordinates. Failures are logged only.
func (a *App) SetMainWindowMonitor(monitorName string) {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Warn("[command] set main window monitor dropped because runtime context is nil", "monitor", monitorName)
		return
	}
	a.calibration.SetMainWindowMonitor(ctx, monitorName)

	monitors, err := a.monitors.Monitors(ctx)
	if err != nil {
		slog.Debug("[command] failed to refresh monitor menu", "error", err)
		return
	}
	a.refreshMonitorMenu(monitors)
}

// IsListening reports the capture mode.
func (a *App) IsListening() bool {
	listening, err := a.state.IsListening()
	if err != nil {
		slog.Error("[command] failed to read capture mode", "error", err)
		return false
	}
	return listening
}

// ToggleListening flips the capture mode, as the menu Start/Stop item does.
func (a *App) ToggleListening() error {
	if _, err := a.toggler.ToggleState(a.state); err != nil {
		slog.Error("[command] toggle failed", "error", err)
		return err
	}
	return nil
}

// ListMonitors returns the attached monitors.
func (a *App) ListMonitors() []monitor.Info {
	ctx := a.runtimeContext()
	if ctx == nil {
		return []monitor.Info{}
	}
	monitors, err := a.monitors.Monitors(ctx)
	if err != nil {
		slog.Warn("[command] failed to list monitors", "error", err)
		return []monitor.Info{}
	}
	return monitors
}

// GetSessionLogEntries returns the warnings and errors recorded this run.
func (a *App) GetSessionLogEntries() []sessionlog.Entry {
	return a.sessionLog.Snapshot()
}
