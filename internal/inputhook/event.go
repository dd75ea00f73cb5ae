// Package inputhook defines the raw input stream consumed by the capture
// worker and the translation from libuiohook notifications into it.
package inputhook

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyStarted is returned when a second stream is requested from a
	// process-wide hook.
	ErrAlreadyStarted = errors.New("input hook already started")
	// ErrHookDisabled reports that the OS hook was torn down without Stop.
	ErrHookDisabled = errors.New("input hook disabled by the system")
)

// Kind classifies a raw input notification.
type Kind uint8

const (
	KeyPress Kind = iota + 1
	KeyRelease
	ButtonPress
	ButtonRelease
	MouseMove
	Wheel
)

func (k Kind) String() string {
	switch k {
	case KeyPress:
		return "KeyPress"
	case KeyRelease:
		return "KeyRelease"
	case ButtonPress:
		return "ButtonPress"
	case ButtonRelease:
		return "ButtonRelease"
	case MouseMove:
		return "MouseMove"
	case Wheel:
		return "Wheel"
	default:
		return "Unknown"
	}
}

// Button is a mouse button as reported by the hook.
type Button uint8

const (
	ButtonOther Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// Event is one raw notification, delivered in OS order.
//
// Key is the raw key identifier: a canonical name such as "ShiftLeft" or
// "KeyA", or a grouped raw form such as "Unknown(0x0e5e)" for codes without a
// name. X/Y are physical coordinates.
type Event struct {
	Kind   Kind
	Key    string
	Button Button
	X      float64
	Y      float64
	DeltaX int64
	DeltaY int64
}

// Source is a blocking pull-style stream of raw input.
//
// Start subscribes to the OS hook. The returned channel is closed when the
// subscription ends; Err then reports why (nil after Stop or ctx cancel).
type Source interface {
	Start(ctx context.Context) (<-chan Event, error)
	Err() error
	Stop() error
}
