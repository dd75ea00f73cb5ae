package main

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"keyviz/internal/capture"
	"keyviz/internal/config"
	"keyviz/internal/inputhook"
	"keyviz/internal/monitor"
	"keyviz/internal/store"
)

// NOTE: tests in this package override package-level function variables
// and the default slog logger. Do not use t.Parallel().

type fakeSource struct {
	mu       sync.Mutex
	startErr error
	events   chan inputhook.Event
	endErr   error
	stops    int
}

func (f *fakeSource) Start(context.Context) (<-chan inputhook.Event, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.events, nil
}

func (f *fakeSource) Err() error { return f.endErr }

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// drainQueue returns everything currently queued on the dispatcher.
func drainQueue(app *App) []dispatchItem {
	var out []dispatchItem
	for {
		select {
		case item := <-app.events.queue:
			out = append(out, item)
		default:
			return out
		}
	}
}

func queuedEventNames(items []dispatchItem) []string {
	var names []string
	for _, item := range items {
		if item.apply == nil {
			names = append(names, item.name)
		}
	}
	return names
}

func poisonState(t *testing.T, s *capture.State) {
	t.Helper()
	func() {
		defer func() { _ = recover() }()
		_ = s.Do(func(*capture.Locked) { panic("boom") })
	}()
	if !s.Poisoned() {
		t.Fatal("state should be poisoned")
	}
}

func TestRuntimeContextSetAndGet(t *testing.T) {
	app := NewApp()
	if app.runtimeContext() != nil {
		t.Fatal("runtimeContext() should be nil before startup context is set")
	}

	want := context.Background()
	app.setRuntimeContext(want)
	if got := app.runtimeContext(); got != want {
		t.Fatalf("runtimeContext() = %v, want %v", got, want)
	}
}

func TestNewAppStartsListeningWithDefaultChord(t *testing.T) {
	app := NewApp()
	if !app.IsListening() {
		t.Fatal("new app should be listening")
	}
	if got := app.GetToggleShortcut(); !slices.Equal(got, []string{"Shift", "F10"}) {
		t.Fatalf("GetToggleShortcut() = %v, want [Shift F10]", got)
	}
	if app.menu.toggle.Label != menuLabelStop {
		t.Fatalf("menu label = %q, want %q", app.menu.toggle.Label, menuLabelStop)
	}
}

func TestSetConfigSnapshotResolvesStorePath(t *testing.T) {
	app := NewApp()
	configPath := "/tmp/keyviz/config.yaml"
	app.setConfigSnapshot(config.DefaultConfig(), configPath)

	want := store.DefaultPath("/tmp/keyviz")
	if got := app.storePathSnapshot(); got != want {
		t.Fatalf("storePathSnapshot() = %q, want %q", got, want)
	}
}

func TestRestoreToggleShortcut(t *testing.T) {
	tests := []struct {
		name    string
		loaded  []string
		loadErr error
		want    []string
	}{
		{name: "stored value wins", loaded: []string{"ControlLeft", "KeyK"}, want: []string{"ControlLeft", "KeyK"}},
		{name: "stored empty disables chord", loaded: []string{}, want: []string{}},
		{name: "missing store uses fallback", loadErr: store.ErrNotFound, want: []string{"Alt", "F9"}},
		{name: "malformed store uses fallback", loadErr: store.ErrMalformed, want: []string{"Alt", "F9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origLoad := loadToggleShortcutFn
			t.Cleanup(func() { loadToggleShortcutFn = origLoad })
			loadToggleShortcutFn = func(string) ([]string, error) {
				return tt.loaded, tt.loadErr
			}

			cfg := config.DefaultConfig()
			cfg.FallbackToggleShortcut = "Alt+F9"
			app := NewApp()
			app.restoreToggleShortcut(cfg)

			got, err := app.state.ToggleShortcut()
			if err != nil {
				t.Fatalf("ToggleShortcut() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("shortcut = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStartCaptureWorkerDisablesCaptureOnHookFailure(t *testing.T) {
	origSource := newInputSourceFn
	origEmit := runtimeEventsEmitFn
	t.Cleanup(func() {
		newInputSourceFn = origSource
		runtimeEventsEmitFn = origEmit
	})

	src := &fakeSource{startErr: errors.New("accessibility denied")}
	newInputSourceFn = func() inputhook.Source { return src }

	var mu sync.Mutex
	var emitted []string
	runtimeEventsEmitFn = func(_ context.Context, name string, _ ...any) {
		mu.Lock()
		emitted = append(emitted, name)
		mu.Unlock()
	}

	app := NewApp()
	app.setRuntimeContext(context.Background())
	app.startCaptureWorker(context.Background(), config.DefaultConfig())
	if !waitWithTimeout(app.bgWG.Wait, 2*time.Second) {
		t.Fatal("capture worker did not stop")
	}

	if !app.captureDisabled.Load() {
		t.Fatal("capture should be disabled after hook start failure")
	}
	if src.Stops() != 1 {
		t.Fatalf("source stops = %d, want 1", src.Stops())
	}
	mu.Lock()
	gotEmitted := slices.Clone(emitted)
	mu.Unlock()
	if !slices.Equal(gotEmitted, []string{eventWorkerFatal}) {
		t.Fatalf("emitted = %v, want [%s]", gotEmitted, eventWorkerFatal)
	}

	items := drainQueue(app)
	if names := queuedEventNames(items); !slices.Equal(names, []string{eventCaptureDisabled}) {
		t.Fatalf("queued events = %v, want [%s]", names, eventCaptureDisabled)
	}
	if items[0].payload == "" {
		t.Fatal("capture:disabled payload should carry the reason")
	}
}

func TestStartCaptureWorkerPublishesThroughDispatcher(t *testing.T) {
	origSource := newInputSourceFn
	t.Cleanup(func() { newInputSourceFn = origSource })

	src := &fakeSource{events: make(chan inputhook.Event)}
	newInputSourceFn = func() inputhook.Source { return src }

	app := NewApp()
	ctx, cancel := context.WithCancel(context.Background())
	app.startCaptureWorker(ctx, config.DefaultConfig())

	src.events <- inputhook.Event{Kind: inputhook.KeyPress, Key: "KeyA"}
	src.events <- inputhook.Event{Kind: inputhook.KeyRelease, Key: "KeyA"}
	cancel()
	if !waitWithTimeout(app.bgWG.Wait, 2*time.Second) {
		t.Fatal("capture worker did not stop")
	}
	if app.captureDisabled.Load() {
		t.Fatal("cancellation must not disable capture")
	}

	items := drainQueue(app)
	if len(items) != 2 {
		t.Fatalf("queued = %d items, want 2", len(items))
	}
	want := []capture.InputEvent{
		capture.KeyEvent{Pressed: true, Name: "KeyA"},
		capture.KeyEvent{Pressed: false, Name: "KeyA"},
	}
	for i, item := range items {
		if item.name != eventInputEvent || item.payload != want[i] {
			t.Fatalf("item[%d] = %s %v, want %s %v", i, item.name, item.payload, eventInputEvent, want[i])
		}
	}
}

func TestOnStoreShortcutChanged(t *testing.T) {
	app := NewApp()
	app.onStoreShortcutChanged([]string{"ControlLeft", "KeyK"})

	got, err := app.state.ToggleShortcut()
	if err != nil {
		t.Fatalf("ToggleShortcut() error = %v", err)
	}
	if !slices.Equal(got, []string{"ControlLeft", "KeyK"}) {
		t.Fatalf("shortcut = %v", got)
	}
	items := drainQueue(app)
	if len(items) != 1 || items[0].name != eventToggleShortcutUpdated {
		t.Fatalf("queued = %+v, want one %s", items, eventToggleShortcutUpdated)
	}
}

// fakeDesktop models Wails window placement: positions are offsets from the
// work area of the display the window currently sits on.
type fakeDesktop struct {
	monitors []monitor.Info
	winX     int
	winY     int
	winW     int
	winH     int
}

func (d *fakeDesktop) current() monitor.Info {
	for _, m := range d.monitors {
		if d.winX >= m.X && d.winX < m.X+m.Width && d.winY >= m.Y && d.winY < m.Y+m.Height {
			return m
		}
	}
	return d.monitors[0]
}

func (d *fakeDesktop) Monitors(context.Context) ([]monitor.Info, error) {
	cur := d.current()
	out := slices.Clone(d.monitors)
	for i := range out {
		out[i].Current = out[i].Name == cur.Name
	}
	return out, nil
}

func (d *fakeDesktop) install(t *testing.T, app *App) {
	t.Helper()
	origPos := runtimeWindowSetPositionFn
	origSize := runtimeWindowSetSizeFn
	origUpdate := runtimeMenuUpdateApplicationMenuFn
	t.Cleanup(func() {
		runtimeWindowSetPositionFn = origPos
		runtimeWindowSetSizeFn = origSize
		runtimeMenuUpdateApplicationMenuFn = origUpdate
	})
	runtimeWindowSetPositionFn = func(_ context.Context, x, y int) {
		cur := d.current()
		d.winX, d.winY = cur.WorkX+x, cur.WorkY+y
	}
	runtimeWindowSetSizeFn = func(_ context.Context, w, h int) { d.winW, d.winH = w, h }
	runtimeMenuUpdateApplicationMenuFn = func(context.Context) {}

	app.setRuntimeContext(context.Background())
	app.monitors = d
	app.calibration = capture.NewCalibrationUpdater(app.state, d, capture.WindowPlacerFunc(app.placeWindow))
}

func TestPlaceWindowIsRelativeToCurrentMonitor(t *testing.T) {
	desk := &fakeDesktop{monitors: []monitor.Info{
		{Name: "DISPLAY1", Width: 1920, Height: 1080, Scale: 1, Primary: true},
		{Name: "DISPLAY2", X: 1920, WorkX: 1920, Width: 2560, Height: 1440, Scale: 1},
		{Name: "DISPLAY3", X: -1280, Y: 100, WorkX: -1280, WorkY: 140, Width: 1280, Height: 1024, Scale: 1},
	}}
	app := NewApp()
	desk.install(t, app)

	steps := []struct {
		monitor      string
		wantX, wantY int
	}{
		{monitor: "DISPLAY2", wantX: 1920, wantY: 0},
		{monitor: "DISPLAY1", wantX: 0, wantY: 0},
		{monitor: "DISPLAY3", wantX: -1280, wantY: 100},
		{monitor: "DISPLAY2", wantX: 1920, wantY: 0},
	}
	for _, step := range steps {
		app.SetMainWindowMonitor(step.monitor)

		cal, err := app.state.Calibration()
		if err != nil {
			t.Fatalf("Calibration() error = %v", err)
		}
		if cal.Name != step.monitor {
			t.Fatalf("calibration = %q, want %q", cal.Name, step.monitor)
		}
		if desk.winX != step.wantX || desk.winY != step.wantY {
			t.Fatalf("after %s window at (%d,%d), want (%d,%d)", step.monitor, desk.winX, desk.winY, step.wantX, step.wantY)
		}
		if desk.current().Name != step.monitor {
			t.Fatalf("window sits on %q, want %q", desk.current().Name, step.monitor)
		}
	}
}

func TestPlaceWindowSizesInLogicalUnits(t *testing.T) {
	desk := &fakeDesktop{monitors: []monitor.Info{
		{Name: "DISPLAY1", Width: 1920, Height: 1080, Scale: 1, Primary: true},
		{Name: "DISPLAY2", X: 1920, WorkX: 1920, Width: 3840, Height: 2160, Scale: 1.5},
	}}
	app := NewApp()
	desk.install(t, app)

	if err := app.placeWindow(nil, desk.monitors[1]); !errors.Is(err, errRuntimeNotReady) {
		t.Fatalf("placeWindow(nil ctx) error = %v, want errRuntimeNotReady", err)
	}
	if err := app.placeWindow(context.Background(), desk.monitors[1]); err != nil {
		t.Fatalf("placeWindow() error = %v", err)
	}
	if desk.winW != 2560 || desk.winH != 1440 {
		t.Fatalf("size = %dx%d, want 2560x1440", desk.winW, desk.winH)
	}
}

func TestPlaceWindowFailsWithoutMonitors(t *testing.T) {
	app := NewApp()
	app.monitors = monitor.ListerFunc(func(context.Context) ([]monitor.Info, error) {
		return nil, errors.New("no display server")
	})
	if err := app.placeWindow(context.Background(), monitor.Info{Name: "DISPLAY1"}); err == nil {
		t.Fatal("placeWindow() should fail when the current monitor cannot be found")
	}
}

func TestWaitWithTimeout(t *testing.T) {
	if !waitWithTimeout(func() {}, time.Second) {
		t.Fatal("waitWithTimeout should succeed for a returning func")
	}
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	if waitWithTimeout(func() { <-block }, 10*time.Millisecond) {
		t.Fatal("waitWithTimeout should time out for a blocked func")
	}
}
