//go:build !windows

package monitor

import (
	"context"
	"fmt"
	goruntime "runtime"
)

// originsInPoints is true where the input hook reports points rather than
// pixels, so screen origins are laid out in points too.
var originsInPoints = goruntime.GOOS == "darwin"

// SystemLister lists screens through the Wails runtime. Wails does not expose
// screen names or positions on these platforms, so screens are named
// "Screen N" in runtime order and laid out left to right from the origin.
type SystemLister struct{}

// NewSystemLister returns the platform lister.
func NewSystemLister() SystemLister { return SystemLister{} }

// Monitors implements Lister. ctx must be the Wails runtime context.
func (SystemLister) Monitors(ctx context.Context) ([]Info, error) {
	screens, err := screenGetAllFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("list screens: %w", err)
	}
	out := make([]Info, 0, len(screens))
	nextX := 0
	for i, s := range screens {
		width, height := s.PhysicalSize.Width, s.PhysicalSize.Height
		if width <= 0 || height <= 0 {
			width, height = s.Width, s.Height
		}
		scale := 1.0
		if s.Size.Width > 0 && s.PhysicalSize.Width > 0 {
			scale = float64(s.PhysicalSize.Width) / float64(s.Size.Width)
		}
		out = append(out, Info{
			Name:    fmt.Sprintf("Screen %d", i+1),
			X:       nextX,
			WorkX:   nextX,
			Width:   width,
			Height:  height,
			Scale:   normalizeScale(scale),
			Primary: s.IsPrimary,
			Current: s.IsCurrent,
		})
		span := width
		if originsInPoints && s.Size.Width > 0 {
			span = s.Size.Width
		}
		nextX += span
	}
	return out, nil
}

// windowUnitScale is the number of origin units per window unit. GTK
// positions windows in logical pixels; on macOS origins are already points.
func windowUnitScale(current Info) float64 {
	if originsInPoints {
		return 1
	}
	return normalizeScale(current.Scale)
}
