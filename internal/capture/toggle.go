package capture

import "log/slog"

// Affordance reflects the capture mode in the UI (menu label, title, icon).
// Implementations must not block.
type Affordance interface {
	SetListening(listening bool)
}

// Notifier tells the primary presentation surface about mode changes.
// Implementations must not block.
type Notifier interface {
	ListeningToggled(listening bool)
}

// Publisher delivers input events to the presentation layer in call order.
// Implementations must not block.
type Publisher interface {
	Publish(ev InputEvent)
}

// AffordanceFunc adapts a function to Affordance.
type AffordanceFunc func(listening bool)

func (f AffordanceFunc) SetListening(listening bool) { f(listening) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(listening bool)

func (f NotifierFunc) ListeningToggled(listening bool) { f(listening) }

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev InputEvent)

func (f PublisherFunc) Publish(ev InputEvent) { f(ev) }

type nopAffordance struct{}

func (nopAffordance) SetListening(bool) {}

type nopNotifier struct{}

func (nopNotifier) ListeningToggled(bool) {}

type nopPublisher struct{}

func (nopPublisher) Publish(InputEvent) {}

// Toggler flips the capture mode and drives its side effects.
type Toggler struct {
	affordance Affordance
	notifier   Notifier
	publisher  Publisher
}

// NewToggler wires the side effects. Nil collaborators are replaced by no-ops.
func NewToggler(affordance Affordance, notifier Notifier, publisher Publisher) *Toggler {
	if affordance == nil {
		affordance = nopAffordance{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Toggler{affordance: affordance, notifier: notifier, publisher: publisher}
}

// Toggle flips listening while the caller holds the state lock, so the flip is
// atomic with any chord check made in the same critical section.
//
// On the listening -> paused transition a release KeyEvent is published for
// every held key, in press order, before Toggle returns. The held keys stay
// recorded so later physical releases keep the bookkeeping consistent.
func (t *Toggler) Toggle(l *Locked) bool {
	next := !l.Listening()
	l.SetListening(next)
	t.affordance.SetListening(next)
	t.notifier.ListeningToggled(next)

	if next {
		slog.Info("[capture] listening enabled")
		return next
	}
	for _, name := range l.s.pressed {
		t.publisher.Publish(KeyEvent{Pressed: false, Name: name})
	}
	slog.Info("[capture] listening disabled", "flushedKeys", len(l.s.pressed))
	return next
}

// ToggleState takes the state lock and toggles. Used from the command context
// (menu actions, bound methods).
func (t *Toggler) ToggleState(s *State) (bool, error) {
	var listening bool
	err := s.Do(func(l *Locked) {
		listening = t.Toggle(l)
	})
	return listening, err
}
