// Package coords maps physical pointer coordinates reported by the input hook
// into the logical coordinate space of the calibrated monitor.
package coords

import (
	"fmt"
	"strings"
)

// Point is a pointer position.
type Point struct {
	X float64
	Y float64
}

// Calibration describes the monitor the overlay window is placed on.
// Scale must be positive; callers validate before storing it.
type Calibration struct {
	Scale   float64
	OriginX int
	OriginY int
}

// Func transforms a physical point using a calibration.
type Func func(cal Calibration, p Point) Point

// Scaling subtracts the monitor origin and divides by the display scale.
func Scaling(cal Calibration, p Point) Point {
	scale := cal.Scale
	if scale <= 0 {
		scale = 1
	}
	return Point{
		X: (p.X - float64(cal.OriginX)) / scale,
		Y: (p.Y - float64(cal.OriginY)) / scale,
	}
}

// OffsetOnly subtracts the monitor origin without applying the scale.
// Used where the hook already reports points in logical units.
func OffsetOnly(cal Calibration, p Point) Point {
	return Point{
		X: p.X - float64(cal.OriginX),
		Y: p.Y - float64(cal.OriginY),
	}
}

// Policy selects one of the transforms.
type Policy string

const (
	PolicyAuto       Policy = "auto"
	PolicyScaling    Policy = "scaling"
	PolicyOffsetOnly Policy = "offset-only"
)

// ParsePolicy accepts "auto", "scaling" or "offset-only" (case-insensitive).
// An empty value is treated as "auto".
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyAuto:
		return PolicyAuto, nil
	case PolicyScaling:
		return PolicyScaling, nil
	case PolicyOffsetOnly:
		return PolicyOffsetOnly, nil
	default:
		return "", fmt.Errorf("unknown coordinate policy %q", raw)
	}
}

// Resolve replaces PolicyAuto with the platform default.
func (p Policy) Resolve() Policy {
	if p == "" || p == PolicyAuto {
		return DefaultPolicy
	}
	return p
}

// Func returns the transform for the policy, resolving PolicyAuto first.
func (p Policy) Func() Func {
	if p.Resolve() == PolicyOffsetOnly {
		return OffsetOnly
	}
	return Scaling
}
