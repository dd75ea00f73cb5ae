package capture

import (
	"context"
	"sync"

	"keyviz/internal/inputhook"
)

// recorder captures every side effect in call order.
type recorder struct {
	mu          sync.Mutex
	events      []InputEvent
	toggles     []bool
	affordances []bool
	log         []string
}

func (r *recorder) Publish(ev InputEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.log = append(r.log, "publish:"+ev.EventType())
}

func (r *recorder) ListeningToggled(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toggles = append(r.toggles, v)
	r.log = append(r.log, "notify")
}

func (r *recorder) SetListening(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.affordances = append(r.affordances, v)
	r.log = append(r.log, "affordance")
}

func (r *recorder) Events() []InputEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]InputEvent(nil), r.events...)
}

func (r *recorder) Toggles() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.toggles...)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.toggles = nil
	r.affordances = nil
	r.log = nil
}

func newTestLoop(state *State, rec *recorder) *Loop {
	return NewLoop(LoopOptions{
		State:     state,
		Toggler:   NewToggler(rec, rec, rec),
		Publisher: rec,
	})
}

func press(name string) inputhook.Event {
	return inputhook.Event{Kind: inputhook.KeyPress, Key: name}
}

func release(name string) inputhook.Event {
	return inputhook.Event{Kind: inputhook.KeyRelease, Key: name}
}

// fakeSource replays a fixed slice of events, then closes with endErr.
type fakeSource struct {
	events   []inputhook.Event
	startErr error
	endErr   error
	hold     bool

	mu      sync.Mutex
	stopped bool
}

func (f *fakeSource) Start(ctx context.Context) (<-chan inputhook.Event, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	out := make(chan inputhook.Event)
	go func() {
		defer close(out)
		for _, ev := range f.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if f.hold {
			<-ctx.Done()
		}
	}()
	return out, nil
}

func (f *fakeSource) Err() error { return f.endErr }

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
