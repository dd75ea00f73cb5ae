package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"keyviz/internal/capture"
)

const (
	eventInputEvent               = "input-event"
	eventListeningToggled         = "listening-toggled"
	eventCaptureDisabled          = "capture:disabled"
	eventToggleShortcutUpdated    = "config:toggle-shortcut-updated"
	eventSessionLogUpdated        = "app:session-log-updated"
	eventWorkerPanic              = "app:worker-panic"
	eventWorkerFatal              = "app:worker-fatal"
	eventQueueSize                = 4096
	eventQueueDropWarningInterval = 5 * time.Second
)

// dispatchItem is either a runtime event (name, payload) or a UI update
// (apply). apply runs on the dispatcher goroutine with the runtime context.
// retain marks items that are parked instead of dropped when the queue is
// full: key releases, mode changes and their affordance updates.
type dispatchItem struct {
	name    string
	payload any
	apply   func(ctx context.Context)
	retain  bool
}

// eventDispatcher delivers events to the webview in enqueue order from a
// single goroutine. enqueue never blocks, so it is safe under the capture
// state lock. A full queue drops the item and counts it unless the item is
// retained; retained items wait in overflow and are delivered after
// everything already queued. While overflow is non-empty every new item goes
// through it, so order holds.
type eventDispatcher struct {
	queue    chan dispatchItem
	dropped  atomic.Uint64
	lastWarn time.Time

	mu       sync.Mutex
	overflow []dispatchItem
	pending  chan struct{}
}

func newEventDispatcher(size int) *eventDispatcher {
	if size <= 0 {
		size = eventQueueSize
	}
	return &eventDispatcher{
		queue:   make(chan dispatchItem, size),
		pending: make(chan struct{}, 1),
	}
}

func (d *eventDispatcher) enqueue(item dispatchItem) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.overflow) == 0 {
		select {
		case d.queue <- item:
			return true
		default:
		}
	}
	if item.retain {
		d.overflow = append(d.overflow, item)
		select {
		case d.pending <- struct{}{}:
		default:
		}
		return true
	}
	d.dropped.Add(1)
	return false
}

// takeOverflow hands back the parked items once the queue ahead of them is
// empty.
func (d *eventDispatcher) takeOverflow() []dispatchItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) > 0 || len(d.overflow) == 0 {
		return nil
	}
	items := d.overflow
	d.overflow = nil
	return items
}

// run drains the queue until ctx is cancelled. Drops are reported from here,
// never from enqueue, so a full queue cannot recurse through the session log.
func (d *eventDispatcher) run(ctx context.Context, deliver func(dispatchItem)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-d.queue:
			d.reportDrops()
			deliver(item)
		case <-d.pending:
		}
		for _, item := range d.takeOverflow() {
			deliver(item)
		}
	}
}

func (d *eventDispatcher) reportDrops() {
	if d.dropped.Load() == 0 {
		return
	}
	now := time.Now()
	if !d.lastWarn.IsZero() && now.Sub(d.lastWarn) < eventQueueDropWarningInterval {
		return
	}
	d.lastWarn = now
	slog.Warn("[EVENT] event queue full, events dropped", "dropped", d.dropped.Swap(0))
}

func (a *App) deliverDispatchItem(item dispatchItem) {
	ctx := a.runtimeContext()
	if item.apply != nil {
		if ctx == nil {
			slog.Debug("[EVENT] ui update dropped because app context is nil")
			return
		}
		item.apply(ctx)
		return
	}
	a.emitRuntimeEventWithContext(ctx, item.name, item.payload)
}

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Warn("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

// queueEvent hands an event to the dispatcher.
func (a *App) queueEvent(name string, payload any) {
	a.events.enqueue(dispatchItem{name: name, payload: payload})
}

// queueRetainedEvent hands an event to the dispatcher that must not be
// dropped when the queue is full.
func (a *App) queueRetainedEvent(name string, payload any) {
	a.events.enqueue(dispatchItem{name: name, payload: payload, retain: true})
}

// publishInputEvent runs under the capture state lock. Key releases are
// retained so the overlay never keeps a key drawn as held.
func (a *App) publishInputEvent(ev capture.InputEvent) {
	if key, ok := ev.(capture.KeyEvent); ok && !key.Pressed {
		a.queueRetainedEvent(eventInputEvent, ev)
		return
	}
	a.queueEvent(eventInputEvent, ev)
}

// notifyListeningToggled runs under the capture state lock.
func (a *App) notifyListeningToggled(listening bool) {
	a.queueRetainedEvent(eventListeningToggled, listening)
}

func (a *App) notifySessionLogUpdated() {
	a.queueEvent(eventSessionLogUpdated, nil)
}
