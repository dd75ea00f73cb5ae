//go:build windows

package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

func TestMarkCurrent(t *testing.T) {
	screenOf := func(width, height int, current bool) runtime.Screen {
		var s runtime.Screen
		s.Width = width
		s.Height = height
		s.IsCurrent = current
		return s
	}
	base := func() []Info {
		return []Info{
			{Name: `\\.\DISPLAY1`, Width: 1920, Height: 1080},
			{Name: `\\.\DISPLAY2`, X: 1920, Width: 2560, Height: 1440},
		}
	}

	tests := []struct {
		name    string
		screens []runtime.Screen
		err     error
		want    []bool
	}{
		{
			name:    "pairs by index",
			screens: []runtime.Screen{screenOf(1920, 1080, false), screenOf(2560, 1440, true)},
			want:    []bool{false, true},
		},
		{
			name:    "size mismatch flags nothing",
			screens: []runtime.Screen{screenOf(2560, 1440, true), screenOf(1920, 1080, false)},
			want:    []bool{false, false},
		},
		{
			name:    "count mismatch flags nothing",
			screens: []runtime.Screen{screenOf(1920, 1080, true)},
			want:    []bool{false, false},
		},
		{name: "runtime error flags nothing", err: errors.New("no frontend"), want: []bool{false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := screenGetAllFn
			t.Cleanup(func() { screenGetAllFn = orig })
			screenGetAllFn = func(context.Context) ([]runtime.Screen, error) { return tt.screens, tt.err }

			out := base()
			markCurrent(context.Background(), out)
			for i, want := range tt.want {
				if out[i].Current != want {
					t.Fatalf("monitor %d Current = %v, want %v", i, out[i].Current, want)
				}
			}
		})
	}
}

func TestWindowUnitScaleIsPhysical(t *testing.T) {
	if got := windowUnitScale(Info{Scale: 1.5}); got != 1 {
		t.Fatalf("windowUnitScale = %v, want 1", got)
	}
}
