package capture

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState()

	listening, err := s.IsListening()
	if err != nil || !listening {
		t.Fatalf("IsListening = %v, %v; want true", listening, err)
	}
	shortcut, _ := s.ToggleShortcut()
	if !reflect.DeepEqual(shortcut, []string{"Shift", "F10"}) {
		t.Fatalf("default shortcut = %v", shortcut)
	}
	cal, _ := s.Calibration()
	if cal.Scale != 1 || cal.Name != "" {
		t.Fatalf("default calibration = %+v", cal)
	}
}

func TestPressSuppressesRepeatsAndReleaseKeepsOrder(t *testing.T) {
	s := NewState()
	err := s.Do(func(l *Locked) {
		for _, k := range []string{"ShiftLeft", "KeyA", "KeyA", "KeyB", "ShiftLeft"} {
			l.Press(k)
		}
		if got := l.PressedKeys(); !reflect.DeepEqual(got, []string{"ShiftLeft", "KeyA", "KeyB"}) {
			t.Errorf("pressed after repeats = %v", got)
		}
		if !l.Release("KeyA") {
			t.Error("Release(KeyA) = false, want true")
		}
		if l.Release("KeyZ") {
			t.Error("Release(KeyZ) = true for a key not held")
		}
		if got := l.PressedKeys(); !reflect.DeepEqual(got, []string{"ShiftLeft", "KeyB"}) {
			t.Errorf("pressed after release = %v", got)
		}
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestPressedKeysReturnsCopy(t *testing.T) {
	s := NewState()
	_ = s.Do(func(l *Locked) { l.Press("KeyA") })
	got, _ := s.PressedKeys()
	got[0] = "mutated"
	again, _ := s.PressedKeys()
	if again[0] != "KeyA" {
		t.Fatalf("PressedKeys leaked internal slice: %v", again)
	}
}

func TestSetToggleShortcutCopiesInput(t *testing.T) {
	s := NewState()
	seq := []string{"ControlLeft", "KeyK"}
	if err := s.SetToggleShortcut(seq); err != nil {
		t.Fatalf("SetToggleShortcut: %v", err)
	}
	seq[0] = "mutated"
	got, _ := s.ToggleShortcut()
	if !reflect.DeepEqual(got, []string{"ControlLeft", "KeyK"}) {
		t.Fatalf("shortcut = %v", got)
	}
}

func TestSetCalibrationRejectsNonPositiveScale(t *testing.T) {
	s := NewState()
	_ = s.Do(func(l *Locked) {
		if err := l.SetCalibration(Calibration{Name: "A", Scale: 2}); err != nil {
			t.Errorf("valid calibration rejected: %v", err)
		}
		for _, bad := range []float64{0, -1} {
			if err := l.SetCalibration(Calibration{Name: "B", Scale: bad}); !errors.Is(err, ErrInvalidScale) {
				t.Errorf("scale %v error = %v, want ErrInvalidScale", bad, err)
			}
		}
		if got := l.Calibration(); got.Name != "A" || got.Scale != 2 {
			t.Errorf("calibration changed by rejected write: %+v", got)
		}
	})
}

func TestPanicInsideDoPoisonsState(t *testing.T) {
	s := NewState()

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate out of Do")
			}
		}()
		_ = s.Do(func(l *Locked) {
			l.Press("KeyA")
			panic("boom")
		})
	}()

	if !s.Poisoned() {
		t.Fatal("state not poisoned after panic")
	}
	ran := false
	if err := s.Do(func(*Locked) { ran = true }); !errors.Is(err, ErrStatePoisoned) {
		t.Fatalf("Do after panic error = %v, want ErrStatePoisoned", err)
	}
	if ran {
		t.Fatal("callback ran on poisoned state")
	}
	if _, err := s.IsListening(); !errors.Is(err, ErrStatePoisoned) {
		t.Fatalf("IsListening error = %v, want ErrStatePoisoned", err)
	}
	if err := s.SetToggleShortcut(nil); !errors.Is(err, ErrStatePoisoned) {
		t.Fatalf("SetToggleShortcut error = %v, want ErrStatePoisoned", err)
	}
}

func TestConcurrentPressReleaseNeverDuplicates(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("Key%d", i%5)
				_ = s.Do(func(l *Locked) {
					if (i+g)%3 == 0 {
						l.Release(key)
					} else {
						l.Press(key)
					}
					seen := map[string]bool{}
					for _, k := range l.PressedKeys() {
						if seen[k] {
							t.Errorf("duplicate %q in %v", k, l.PressedKeys())
						}
						seen[k] = true
					}
				})
			}
		}(g)
	}
	wg.Wait()
}
