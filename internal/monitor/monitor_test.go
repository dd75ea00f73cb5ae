package monitor

import (
	"context"
	"errors"
	"testing"
)

func sampleMonitors() []Info {
	return []Info{
		{Name: `\\.\DISPLAY2`, X: -1920, Width: 1920, Height: 1080, Scale: 1},
		{Name: `\\.\DISPLAY1`, X: 0, Width: 3840, Height: 2160, Scale: 2, Primary: true},
	}
}

func TestFind(t *testing.T) {
	got, err := Find(sampleMonitors(), `\\.\DISPLAY1`)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Width != 3840 || got.Scale != 2 {
		t.Fatalf("Find returned %+v", got)
	}

	if _, err := Find(sampleMonitors(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPrimary(t *testing.T) {
	got, err := Primary(sampleMonitors())
	if err != nil || got.Name != `\\.\DISPLAY1` {
		t.Fatalf("Primary = %+v, %v", got, err)
	}

	noFlag := []Info{{Name: "a"}, {Name: "b"}}
	got, err = Primary(noFlag)
	if err != nil || got.Name != "a" {
		t.Fatalf("Primary without flag = %+v, %v; want first", got, err)
	}

	if _, err := Primary(nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Primary(nil) error = %v, want ErrNotFound", err)
	}
}

func TestListerFunc(t *testing.T) {
	calls := 0
	var l Lister = ListerFunc(func(context.Context) ([]Info, error) {
		calls++
		return sampleMonitors(), nil
	})
	got, err := l.Monitors(context.Background())
	if err != nil || len(got) != 2 || calls != 1 {
		t.Fatalf("Monitors = %v, %v (calls=%d)", got, err, calls)
	}
}

func TestNormalizeScale(t *testing.T) {
	if normalizeScale(0) != 1 || normalizeScale(-2) != 1 || normalizeScale(1.25) != 1.25 {
		t.Fatal("normalizeScale did not clamp non-positive values to 1")
	}
}

func TestCurrent(t *testing.T) {
	monitors := sampleMonitors()
	got, err := Current(monitors)
	if err != nil || got.Name != `\\.\DISPLAY1` {
		t.Fatalf("Current without flag = %+v, %v; want primary", got, err)
	}

	monitors[0].Current = true
	got, err = Current(monitors)
	if err != nil || got.Name != `\\.\DISPLAY2` {
		t.Fatalf("Current = %+v, %v; want flagged monitor", got, err)
	}

	if _, err := Current(nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Current(nil) error = %v, want ErrNotFound", err)
	}
}

func TestWindowOffset(t *testing.T) {
	primary := Info{Name: "A", Width: 1920, Height: 1080, Scale: 1}
	right := Info{Name: "B", X: 1920, WorkX: 1920, Width: 1920, Height: 1080, Scale: 1}
	left := Info{Name: "C", X: -1280, Y: 200, WorkX: -1280, WorkY: 240, Width: 1280, Height: 1024, Scale: 1}

	tests := []struct {
		name         string
		current      Info
		target       Info
		wantX, wantY int
	}{
		{name: "same display", current: right, target: right, wantX: 0, wantY: 0},
		{name: "primary to right", current: primary, target: right, wantX: 1920, wantY: 0},
		{name: "right back to primary", current: right, target: primary, wantX: -1920, wantY: 0},
		{name: "work area offset", current: left, target: primary, wantX: 1280, wantY: -240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := WindowOffset(tt.current, tt.target)
			if x != tt.wantX || y != tt.wantY {
				t.Fatalf("WindowOffset = (%d,%d), want (%d,%d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}
