// Package monitor enumerates the displays the overlay window can be placed on.
package monitor

import (
	"context"
	"errors"
	"math"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// ErrNotFound is returned when no monitor carries the requested name.
var ErrNotFound = errors.New("monitor not found")

var screenGetAllFn = runtime.ScreenGetAll

// Info describes one display. X/Y (and WorkX/WorkY, the origin of the usable
// work area) are in the units the input hook reports pointer positions in:
// points on macOS, pixels elsewhere. Width/Height are physical pixels.
// Current marks the display holding the main window.
type Info struct {
	Name    string  `json:"name"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	WorkX   int     `json:"workX"`
	WorkY   int     `json:"workY"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Scale   float64 `json:"scale"`
	Primary bool    `json:"primary"`
	Current bool    `json:"current"`
}

// Lister returns the monitors currently attached.
type Lister interface {
	Monitors(ctx context.Context) ([]Info, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]Info, error)

// Monitors calls f.
func (f ListerFunc) Monitors(ctx context.Context) ([]Info, error) {
	return f(ctx)
}

// Find returns the monitor named name.
func Find(monitors []Info, name string) (Info, error) {
	for _, m := range monitors {
		if m.Name == name {
			return m, nil
		}
	}
	return Info{}, ErrNotFound
}

// Primary returns the primary monitor, or the first one when none is flagged.
func Primary(monitors []Info) (Info, error) {
	if len(monitors) == 0 {
		return Info{}, ErrNotFound
	}
	for _, m := range monitors {
		if m.Primary {
			return m, nil
		}
	}
	return monitors[0], nil
}

// Current returns the display holding the main window, falling back to the
// primary display when none is flagged.
func Current(monitors []Info) (Info, error) {
	for _, m := range monitors {
		if m.Current {
			return m, nil
		}
	}
	return Primary(monitors)
}

// WindowOffset converts target's origin into the position Wails'
// WindowSetPosition expects: an offset from the work area of the display the
// window is on now, in window units.
func WindowOffset(current, target Info) (x, y int) {
	unit := windowUnitScale(current)
	return int(math.Round(float64(target.X-current.WorkX) / unit)),
		int(math.Round(float64(target.Y-current.WorkY) / unit))
}

func normalizeScale(scale float64) float64 {
	if scale <= 0 {
		return 1
	}
	return scale
}
