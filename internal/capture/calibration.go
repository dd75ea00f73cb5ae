package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"keyviz/internal/monitor"
)

// WindowPlacer moves and resizes the primary presentation window onto a
// monitor.
type WindowPlacer interface {
	Place(ctx context.Context, m monitor.Info) error
}

// WindowPlacerFunc adapts a function to WindowPlacer.
type WindowPlacerFunc func(ctx context.Context, m monitor.Info) error

func (f WindowPlacerFunc) Place(ctx context.Context, m monitor.Info) error { return f(ctx, m) }

// CalibrationUpdater assigns the overlay window to a monitor and records the
// monitor's calibration in State.
type CalibrationUpdater struct {
	// mu serializes updates so two identical requests cannot both pass the
	// idempotency check. Lock ordering: mu -> State.mu.
	mu       sync.Mutex
	state    *State
	monitors monitor.Lister
	placer   WindowPlacer
}

// NewCalibrationUpdater creates an updater.
func NewCalibrationUpdater(state *State, monitors monitor.Lister, placer WindowPlacer) *CalibrationUpdater {
	return &CalibrationUpdater{state: state, monitors: monitors, placer: placer}
}

// SetMainWindowMonitor moves the window to the named monitor and stores its
// calibration. Selecting the monitor that is already calibrated does nothing.
// Failures are logged, never returned.
func (u *CalibrationUpdater) SetMainWindowMonitor(ctx context.Context, name string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	current, err := u.state.Calibration()
	if err != nil {
		slog.Error("[calibration] state unavailable", "monitor", name, "error", err)
		return
	}
	if current.Name == name {
		slog.Debug("[calibration] monitor already selected", "monitor", name)
		return
	}

	monitors, err := u.monitors.Monitors(ctx)
	if err != nil {
		slog.Warn("[calibration] failed to list monitors", "monitor", name, "error", err)
		return
	}
	target, err := monitor.Find(monitors, name)
	if err != nil {
		slog.Warn("[calibration] monitor not found", "monitor", name, "available", len(monitors))
		return
	}
	u.apply(ctx, target)
}

// SelectPrimary calibrates against the primary monitor. Used at startup when
// no monitor is configured.
func (u *CalibrationUpdater) SelectPrimary(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()

	monitors, err := u.monitors.Monitors(ctx)
	if err != nil {
		slog.Warn("[calibration] failed to list monitors", "error", err)
		return
	}
	target, err := monitor.Primary(monitors)
	if err != nil {
		slog.Warn("[calibration] no monitors available")
		return
	}
	current, err := u.state.Calibration()
	if err != nil {
		slog.Error("[calibration] state unavailable", "error", err)
		return
	}
	if current.Name == target.Name {
		return
	}
	u.apply(ctx, target)
}

func (u *CalibrationUpdater) apply(ctx context.Context, target monitor.Info) {
	if u.placer != nil {
		if err := u.placer.Place(ctx, target); err != nil {
			// Placement is best effort; the calibration still follows the
			// selected monitor.
			slog.Warn("[calibration] failed to place window", "monitor", target.Name, "error", err)
		}
	}

	next := Calibration{
		Name:    target.Name,
		Scale:   target.Scale,
		OriginX: target.X,
		OriginY: target.Y,
	}
	var setErr error
	err := u.state.Do(func(l *Locked) {
		setErr = l.SetCalibration(next)
	})
	if err := errors.Join(err, setErr); err != nil {
		slog.Error("[calibration] failed to store calibration", "monitor", target.Name, "error", err)
		return
	}
	slog.Info("[calibration] moved main window to monitor",
		"monitor", target.Name,
		"x", target.X,
		"y", target.Y,
		"scale", target.Scale,
	)
}
