package main

import (
	"context"
	"sync"
	"sync/atomic"

	"keyviz/internal/capture"
	"keyviz/internal/config"
	"keyviz/internal/inputhook"
	"keyviz/internal/inputhook/gohook"
	"keyviz/internal/monitor"
	"keyviz/internal/sessionlog"
	"keyviz/internal/store"
)

// App is the Wails-bound backend: it owns the capture state, the capture
// worker and the bridges that carry their output to the webview.
type App struct {
	ctx   context.Context
	ctxMu sync.RWMutex

	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string
	storePath  string

	state       *capture.State
	toggler     *capture.Toggler
	calibration *capture.CalibrationUpdater
	monitors    monitor.Lister

	source          inputhook.Source
	captureDisabled atomic.Bool

	events       *eventDispatcher
	menu         *captureMenu
	storeWatcher atomic.Pointer[store.Watcher]
	sessionLog   *sessionlog.Recorder

	shuttingDown atomic.Bool
	bgCancel     context.CancelFunc
	bgWG         sync.WaitGroup
}

var newInputSourceFn = func() inputhook.Source { return gohook.New() }

// NewApp creates the application with a listening state and the default
// toggle chord. Nothing touches the OS until startup.
func NewApp() *App {
	a := &App{
		cfg:      config.DefaultConfig(),
		state:    capture.NewState(),
		monitors: monitor.NewSystemLister(),
		events:   newEventDispatcher(eventQueueSize),
	}
	a.sessionLog = sessionlog.NewRecorder(sessionlog.Options{
		OnUpdate: a.notifySessionLogUpdated,
	})
	a.menu = newCaptureMenu(a)
	a.toggler = capture.NewToggler(
		capture.AffordanceFunc(a.setListeningAffordance),
		capture.NotifierFunc(a.notifyListeningToggled),
		capture.PublisherFunc(a.publishInputEvent),
	)
	a.calibration = capture.NewCalibrationUpdater(a.state, a.monitors, capture.WindowPlacerFunc(a.placeWindow))
	return a
}

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	ctx := a.ctx
	a.ctxMu.RUnlock()
	return ctx
}

func (a *App) setConfigSnapshot(cfg config.Config, configPath string) {
	a.cfgMu.Lock()
	a.cfg = cfg
	a.configPath = configPath
	a.storePath = cfg.ResolveStorePath(configPath)
	a.cfgMu.Unlock()
}

func (a *App) configSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

func (a *App) storePathSnapshot() string {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.storePath
}
