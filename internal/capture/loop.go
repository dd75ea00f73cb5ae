package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"keyviz/internal/coords"
	"keyviz/internal/inputhook"
)

// LoopOptions wires a Loop. Normalize defaults to the platform coordinate
// policy when nil.
type LoopOptions struct {
	Source    inputhook.Source
	State     *State
	Toggler   *Toggler
	Publisher Publisher
	Normalize coords.Func
}

// Loop is the capture worker. It owns the only read path over raw input and
// handles events strictly in delivery order.
type Loop struct {
	source    inputhook.Source
	state     *State
	toggler   *Toggler
	publisher Publisher
	normalize coords.Func
}

// NewLoop creates a Loop.
func NewLoop(opts LoopOptions) *Loop {
	if opts.Toggler == nil {
		opts.Toggler = NewToggler(nil, nil, opts.Publisher)
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Normalize == nil {
		opts.Normalize = coords.DefaultPolicy.Func()
	}
	return &Loop{
		source:    opts.Source,
		state:     opts.State,
		toggler:   opts.Toggler,
		publisher: opts.Publisher,
		normalize: opts.Normalize,
	}
}

// Run subscribes to the source and processes events until the stream ends.
// It returns nil only when ctx is cancelled. A start failure wraps
// ErrHookStart, an unexpected end of stream wraps ErrHookTerminated, and a
// poisoned state returns ErrStatePoisoned.
func (l *Loop) Run(ctx context.Context) error {
	events, err := l.source.Start(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHookStart, err)
	}
	slog.Info("[capture] input capture loop started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				if srcErr := l.source.Err(); srcErr != nil {
					return fmt.Errorf("%w: %w", ErrHookTerminated, srcErr)
				}
				return ErrHookTerminated
			}
			if err := l.Handle(raw); err != nil {
				if stopErr := l.source.Stop(); stopErr != nil {
					slog.Warn("[capture] source stop failed", "error", stopErr)
				}
				return err
			}
		}
	}
}

// Handle processes one raw event inside a single critical section: key
// bookkeeping, chord detection, toggle, and publication.
func (l *Loop) Handle(raw inputhook.Event) error {
	return l.state.Do(func(tx *Locked) {
		switch raw.Kind {
		case inputhook.KeyPress:
			if !isNamedKey(raw.Key) {
				return
			}
			if !tx.Press(raw.Key) {
				return
			}
			if tx.ChordMatched() {
				l.toggler.Toggle(tx)
			}
		case inputhook.KeyRelease:
			if !isNamedKey(raw.Key) {
				return
			}
			tx.Release(raw.Key)
		}

		if !tx.Listening() {
			return
		}
		if ev, ok := l.translate(tx, raw); ok {
			l.publisher.Publish(ev)
		}
	})
}

func (l *Loop) translate(tx *Locked, raw inputhook.Event) (InputEvent, bool) {
	switch raw.Kind {
	case inputhook.KeyPress:
		return KeyEvent{Pressed: true, Name: raw.Key}, true
	case inputhook.KeyRelease:
		return KeyEvent{Pressed: false, Name: raw.Key}, true
	case inputhook.ButtonPress:
		return MouseButtonEvent{Pressed: true, Button: mouseButton(raw.Button)}, true
	case inputhook.ButtonRelease:
		return MouseButtonEvent{Pressed: false, Button: mouseButton(raw.Button)}, true
	case inputhook.MouseMove:
		p := l.normalize(tx.Calibration().Coords(), coords.Point{X: raw.X, Y: raw.Y})
		return MouseMoveEvent{X: p.X, Y: p.Y}, true
	case inputhook.Wheel:
		return MouseWheelEvent{DeltaX: raw.DeltaX, DeltaY: raw.DeltaY}, true
	default:
		slog.Debug("[capture] unhandled raw event kind", "kind", raw.Kind.String())
		return nil, false
	}
}

// isNamedKey rejects empty identifiers and grouped raw forms such as
// "Unknown(0x0e5e)".
func isNamedKey(name string) bool {
	return name != "" && !strings.ContainsAny(name, "()")
}

func mouseButton(b inputhook.Button) MouseButton {
	switch b {
	case inputhook.ButtonLeft:
		return MouseLeft
	case inputhook.ButtonRight:
		return MouseRight
	case inputhook.ButtonMiddle:
		return MouseMiddle
	default:
		return MouseOther
	}
}
