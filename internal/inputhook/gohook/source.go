// Package gohook adapts github.com/robotn/gohook to inputhook.Source.
package gohook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	hook "github.com/robotn/gohook"

	"keyviz/internal/inputhook"
)

// Test seams. gohook keeps one process-wide hook, so tests replace these
// instead of touching the real OS subscription.
var (
	hookStartFn = hook.Start
	hookEndFn   = hook.End
)

// Source streams global keyboard and mouse input from libuiohook.
// A Source can be started once.
type Source struct {
	mu      sync.Mutex
	started bool
	err     error

	stopping atomic.Bool
	done     chan struct{}
}

// New creates an unstarted Source.
func New() *Source {
	return &Source{done: make(chan struct{})}
}

// Start subscribes to the OS hook. Events are relayed unbuffered so that the
// consumer sees them in exactly the order libuiohook delivered them.
func (s *Source) Start(ctx context.Context) (<-chan inputhook.Event, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, inputhook.ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	raw := hookStartFn()
	if raw == nil {
		close(s.done)
		return nil, errors.New("gohook: start returned no event channel")
	}

	out := make(chan inputhook.Event)
	go s.relay(ctx, raw, out)
	go func() {
		select {
		case <-ctx.Done():
			if err := s.Stop(); err != nil {
				slog.Warn("[hook] stop on context cancel failed", "error", err)
			}
		case <-s.done:
		}
	}()
	return out, nil
}

func (s *Source) relay(ctx context.Context, raw <-chan hook.Event, out chan<- inputhook.Event) {
	defer close(s.done)
	defer close(out)

	for ev := range raw {
		translated, ok, status := inputhook.Translate(inputhook.RawHookEvent{
			Kind:      ev.Kind,
			Keycode:   ev.Keycode,
			Button:    ev.Button,
			X:         ev.X,
			Y:         ev.Y,
			Rotation:  int64(ev.Rotation),
			Direction: ev.Direction,
		})
		switch status {
		case inputhook.StatusEnabled:
			slog.Info("[hook] global input hook enabled")
			continue
		case inputhook.StatusDisabled:
			if s.stopping.Load() {
				return
			}
			slog.Warn("[hook] global input hook disabled unexpectedly")
			s.setErr(inputhook.ErrHookDisabled)
			s.end()
			return
		}
		if !ok {
			continue
		}
		select {
		case out <- translated:
		case <-ctx.Done():
			return
		}
	}
	if !s.stopping.Load() {
		s.setErr(errors.New("gohook: event channel closed"))
	}
}

// Err reports why the stream ended. It is nil while running and after a
// requested stop.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop ends the OS subscription. Safe to call more than once.
func (s *Source) Stop() error {
	s.end()
	return nil
}

func (s *Source) end() {
	if s.stopping.CompareAndSwap(false, true) {
		hookEndFn()
	}
}

func (s *Source) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
