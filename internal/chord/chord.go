// Package chord parses and matches the toggle key chord.
package chord

import (
	"fmt"
	"slices"
	"strings"
)

// Default is the toggle chord used when no persisted shortcut is available.
var Default = Chord{"Shift", "F10"}

// Chord is an ordered key sequence. It matches only when the held keys equal
// the chord element by element, in press order.
type Chord []string

// Parse parses a chord like "ShiftLeft+F10". Tokens are kept verbatim apart
// from surrounding whitespace because key identifiers are case-sensitive.
func Parse(spec string) (Chord, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return nil, fmt.Errorf("chord spec is empty")
	}

	parts := strings.Split(raw, "+")
	out := make(Chord, 0, len(parts))
	seen := map[string]struct{}{}
	for _, token := range parts {
		name := strings.TrimSpace(token)
		if name == "" {
			return nil, fmt.Errorf("empty key in chord %q", raw)
		}
		if strings.ContainsAny(name, "()") {
			return nil, fmt.Errorf("key %q in chord %q is not a named key", name, raw)
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("key %q repeated in chord %q", name, raw)
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// String returns the canonical "A+B" form.
func (c Chord) String() string {
	return strings.Join(c, "+")
}

// Clone returns an independent copy. A nil chord clones to an empty, non-nil one.
func (c Chord) Clone() Chord {
	out := make(Chord, len(c))
	copy(out, c)
	return out
}

// Matches reports whether pressed is sequence-equal to shortcut.
// An empty shortcut never matches a non-empty pressed set, which is the only
// kind a key press can produce.
func Matches(pressed, shortcut []string) bool {
	return slices.Equal(pressed, shortcut)
}
