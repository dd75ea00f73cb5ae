package main

import (
	"context"
	"log/slog"
	goruntime "runtime"

	"keyviz/internal/monitor"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
)

const (
	appTitle       = "keyviz"
	appTitlePaused = "keyviz (paused)"

	menuLabelStop     = "Stop"
	menuLabelStart    = "Start"
	menuLabelDisabled = "Capture unavailable"
)

// captureMenu is the application menu standing in for a tray icon. After
// wails.Run starts, its items are only mutated on the dispatcher goroutine.
type captureMenu struct {
	root     *menu.Menu
	toggle   *menu.MenuItem
	monitors *menu.Menu
}

func newCaptureMenu(a *App) *captureMenu {
	root := menu.NewMenu()
	if goruntime.GOOS == "darwin" {
		root.Append(menu.AppMenu())
	}
	sub := root.AddSubmenu("Capture")
	m := &captureMenu{root: root}
	m.toggle = sub.AddText(menuLabelStop, keys.CmdOrCtrl("l"), func(*menu.CallbackData) {
		// Menu callbacks must return promptly; the toggle takes the state lock.
		go a.toggleFromMenu()
	})
	m.monitors = sub.AddSubmenu("Monitor")
	sub.AddSeparator()
	sub.AddText("Quit", keys.CmdOrCtrl("q"), func(*menu.CallbackData) {
		if ctx := a.runtimeContext(); ctx != nil {
			runtimeQuitFn(ctx)
		}
	})
	return m
}

func (a *App) toggleFromMenu() {
	if _, err := a.toggler.ToggleState(a.state); err != nil {
		slog.Error("[menu] toggle failed", "error", err)
	}
}

// setListeningAffordance runs under the capture state lock, so the menu and
// title update is deferred to the dispatcher.
func (a *App) setListeningAffordance(listening bool) {
	a.events.enqueue(dispatchItem{retain: true, apply: func(ctx context.Context) {
		a.applyListeningAffordance(ctx, listening)
	}})
}

func (a *App) applyListeningAffordance(ctx context.Context, listening bool) {
	if a.captureDisabled.Load() {
		return
	}
	label, title := menuLabelStop, appTitle
	if !listening {
		label, title = menuLabelStart, appTitlePaused
	}
	a.menu.toggle.Label = label
	runtimeMenuUpdateApplicationMenuFn(ctx)
	runtimeWindowSetTitleFn(ctx, title)
}

func (a *App) applyCaptureDisabledAffordance(ctx context.Context) {
	a.menu.toggle.Label = menuLabelDisabled
	a.menu.toggle.Disabled = true
	runtimeMenuUpdateApplicationMenuFn(ctx)
	runtimeWindowSetTitleFn(ctx, appTitle)
}

// refreshMonitorMenu rebuilds the Monitor submenu with the selected monitor
// checked.
func (a *App) refreshMonitorMenu(monitors []monitor.Info) {
	selected := ""
	if cal, err := a.state.Calibration(); err == nil {
		selected = cal.Name
	}
	a.events.enqueue(dispatchItem{apply: func(ctx context.Context) {
		a.menu.monitors.Items = nil
		for _, m := range monitors {
			name := m.Name
			a.menu.monitors.AddRadio(name, name == selected, nil, func(*menu.CallbackData) {
				go a.SetMainWindowMonitor(name)
			})
		}
		runtimeMenuUpdateApplicationMenuFn(ctx)
	}})
}
