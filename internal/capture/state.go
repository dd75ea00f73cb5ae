// Package capture holds the shared capture state, the toggle controller, the
// input capture loop and the monitor calibration updater.
package capture

import (
	"slices"
	"sync"

	"keyviz/internal/chord"
	"keyviz/internal/coords"
)

// Calibration is the cached placement of the overlay window.
// An empty Name means no monitor has been selected yet.
type Calibration struct {
	Name    string  `json:"name"`
	Scale   float64 `json:"scale"`
	OriginX int     `json:"originX"`
	OriginY int     `json:"originY"`
}

// Coords converts the calibration for the coordinate transforms.
func (c Calibration) Coords() coords.Calibration {
	return coords.Calibration{Scale: c.Scale, OriginX: c.OriginX, OriginY: c.OriginY}
}

// State is the single source of truth for capture mode, held keys, the toggle
// chord and monitor calibration. Every field is guarded by mu and reachable
// only through Do.
//
// A panic inside Do poisons the state: the lock is released, the panic keeps
// unwinding, and every later Do fails with ErrStatePoisoned.
type State struct {
	mu          sync.Mutex
	poisoned    bool
	listening   bool
	pressed     []string
	shortcut    []string
	calibration Calibration
}

// NewState returns a listening state with the default toggle chord and an
// identity calibration.
func NewState() *State {
	return &State{
		listening:   true,
		shortcut:    chord.Default.Clone(),
		calibration: Calibration{Scale: 1},
	}
}

// Locked is the view of State available while its lock is held. It is only
// valid inside the Do callback that received it.
type Locked struct {
	s *State
}

// Do runs fn with the state lock held.
func (s *State) Do(fn func(l *Locked)) error {
	s.mu.Lock()
	if s.poisoned {
		s.mu.Unlock()
		return ErrStatePoisoned
	}
	l := &Locked{s: s}
	completed := false
	defer func() {
		l.s = nil
		if !completed {
			s.poisoned = true
		}
		s.mu.Unlock()
	}()
	fn(l)
	completed = true
	return nil
}

// Poisoned reports whether a critical section has panicked.
func (s *State) Poisoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poisoned
}

// IsListening reads the capture mode.
func (s *State) IsListening() (bool, error) {
	var listening bool
	err := s.Do(func(l *Locked) { listening = l.Listening() })
	return listening, err
}

// ToggleShortcut returns a copy of the configured chord.
func (s *State) ToggleShortcut() ([]string, error) {
	var out []string
	err := s.Do(func(l *Locked) { out = l.ToggleShortcut() })
	return out, err
}

// SetToggleShortcut replaces the chord. No validation is applied; an empty
// sequence disables chord toggling.
func (s *State) SetToggleShortcut(seq []string) error {
	return s.Do(func(l *Locked) { l.SetToggleShortcut(seq) })
}

// PressedKeys returns the held keys in press order.
func (s *State) PressedKeys() ([]string, error) {
	var out []string
	err := s.Do(func(l *Locked) { out = l.PressedKeys() })
	return out, err
}

// Calibration returns the current calibration.
func (s *State) Calibration() (Calibration, error) {
	var out Calibration
	err := s.Do(func(l *Locked) { out = l.Calibration() })
	return out, err
}

func (l *Locked) Listening() bool { return l.s.listening }

func (l *Locked) SetListening(v bool) { l.s.listening = v }

// PressedKeys returns a copy of the held keys in press order.
func (l *Locked) PressedKeys() []string {
	return slices.Clone(l.s.pressed)
}

// Press records name as held. It returns false for a repeat of a key that is
// already held, leaving the sequence unchanged.
func (l *Locked) Press(name string) bool {
	if slices.Contains(l.s.pressed, name) {
		return false
	}
	l.s.pressed = append(l.s.pressed, name)
	return true
}

// Release removes name, keeping the order of the remaining keys.
func (l *Locked) Release(name string) bool {
	idx := slices.Index(l.s.pressed, name)
	if idx < 0 {
		return false
	}
	l.s.pressed = slices.Delete(l.s.pressed, idx, idx+1)
	return true
}

func (l *Locked) ToggleShortcut() []string {
	return slices.Clone(l.s.shortcut)
}

func (l *Locked) SetToggleShortcut(seq []string) {
	l.s.shortcut = slices.Clone(seq)
}

// ChordMatched reports whether the held keys equal the toggle chord exactly.
func (l *Locked) ChordMatched() bool {
	return chord.Matches(l.s.pressed, l.s.shortcut)
}

func (l *Locked) Calibration() Calibration { return l.s.calibration }

// SetCalibration replaces the calibration. A non-positive scale is rejected
// and the previous calibration is kept.
func (l *Locked) SetCalibration(c Calibration) error {
	if !(c.Scale > 0) {
		return ErrInvalidScale
	}
	l.s.calibration = c
	return nil
}
