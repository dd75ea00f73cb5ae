package capture

import (
	"errors"
	"reflect"
	"testing"
)

func TestToggleStateFromCommandContext(t *testing.T) {
	state := NewState()
	rec := &recorder{}
	toggler := NewToggler(rec, rec, rec)

	_ = state.Do(func(l *Locked) {
		l.Press("ControlLeft")
		l.Press("KeyC")
	})

	listening, err := toggler.ToggleState(state)
	if err != nil || listening {
		t.Fatalf("ToggleState = %v, %v; want false, nil", listening, err)
	}
	want := []InputEvent{
		KeyEvent{Pressed: false, Name: "ControlLeft"},
		KeyEvent{Pressed: false, Name: "KeyC"},
	}
	if got := rec.Events(); !reflect.DeepEqual(got, want) {
		t.Fatalf("flush = %#v, want %#v", got, want)
	}
	if !reflect.DeepEqual(rec.affordances, []bool{false}) {
		t.Fatalf("affordance updates = %v", rec.affordances)
	}

	rec.Reset()
	listening, err = toggler.ToggleState(state)
	if err != nil || !listening {
		t.Fatalf("second ToggleState = %v, %v; want true, nil", listening, err)
	}
	if got := rec.Events(); len(got) != 0 {
		t.Fatalf("toggle-on published %#v, want nothing", got)
	}
	if got := rec.Toggles(); !reflect.DeepEqual(got, []bool{true}) {
		t.Fatalf("notifications = %v", got)
	}
}

func TestToggleWithNilCollaborators(t *testing.T) {
	state := NewState()
	toggler := NewToggler(nil, nil, nil)
	_ = state.Do(func(l *Locked) { l.Press("KeyA") })
	if _, err := toggler.ToggleState(state); err != nil {
		t.Fatalf("ToggleState: %v", err)
	}
	if listening, _ := state.IsListening(); listening {
		t.Fatal("listening not flipped")
	}
}

func TestToggleStateOnPoisonedState(t *testing.T) {
	state := NewState()
	func() {
		defer func() { _ = recover() }()
		_ = state.Do(func(*Locked) { panic("corrupt") })
	}()
	rec := &recorder{}
	if _, err := NewToggler(rec, rec, rec).ToggleState(state); !errors.Is(err, ErrStatePoisoned) {
		t.Fatalf("error = %v, want ErrStatePoisoned", err)
	}
	if len(rec.log) != 0 {
		t.Fatalf("side effects ran on poisoned state: %v", rec.log)
	}
}

func TestFuncAdapters(t *testing.T) {
	var gotAffordance, gotNotify bool
	var gotEvent InputEvent
	toggler := NewToggler(
		AffordanceFunc(func(v bool) { gotAffordance = true }),
		NotifierFunc(func(v bool) { gotNotify = true }),
		PublisherFunc(func(ev InputEvent) { gotEvent = ev }),
	)
	state := NewState()
	_ = state.Do(func(l *Locked) { l.Press("KeyQ") })
	if _, err := toggler.ToggleState(state); err != nil {
		t.Fatal(err)
	}
	if !gotAffordance || !gotNotify {
		t.Fatalf("adapters not called: affordance=%v notify=%v", gotAffordance, gotNotify)
	}
	if gotEvent != (KeyEvent{Pressed: false, Name: "KeyQ"}) {
		t.Fatalf("published %#v", gotEvent)
	}
}
