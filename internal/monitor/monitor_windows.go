//go:build windows

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")
	shcoreDLL = windows.NewLazySystemDLL("shcore.dll")

	procEnumDisplayMonitors = user32DLL.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = user32DLL.NewProc("GetMonitorInfoW")
	procGetDpiForMonitor    = shcoreDLL.NewProc("GetDpiForMonitor")
)

const (
	monitorInfoFPrimary = 0x00000001
	mdtEffectiveDPI     = 0
	defaultDPI          = 96.0
)

type rect struct {
	left   int32
	top    int32
	right  int32
	bottom int32
}

// monitorInfoEx mirrors MONITORINFOEXW. Layout must not change.
type monitorInfoEx struct {
	cbSize    uint32
	rcMonitor rect
	rcWork    rect
	dwFlags   uint32
	szDevice  [32]uint16
}

// Callbacks created by windows.NewCallback are never released, so one is
// shared by every enumeration. enumMu serializes access to enumHandles.
var (
	enumMu       sync.Mutex
	enumHandles  []uintptr
	enumCallback = windows.NewCallback(func(hMonitor, _, _, _ uintptr) uintptr {
		enumHandles = append(enumHandles, hMonitor)
		return 1
	})
)

// SystemLister enumerates monitors through user32. Names are GDI device
// names such as `\\.\DISPLAY1`.
type SystemLister struct{}

// NewSystemLister returns the platform lister.
func NewSystemLister() SystemLister { return SystemLister{} }

// Monitors implements Lister. When ctx is the Wails runtime context the
// display holding the main window is flagged Current.
func (SystemLister) Monitors(ctx context.Context) ([]Info, error) {
	if err := user32DLL.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}

	enumMu.Lock()
	enumHandles = enumHandles[:0]
	ret, _, callErr := procEnumDisplayMonitors.Call(0, 0, enumCallback, 0)
	handles := append([]uintptr(nil), enumHandles...)
	enumMu.Unlock()
	if ret == 0 {
		if callErr == windows.Errno(0) {
			return nil, errors.New("EnumDisplayMonitors failed")
		}
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", callErr)
	}

	dpiAvailable := shcoreDLL.Load() == nil
	out := make([]Info, 0, len(handles))
	for _, h := range handles {
		info := monitorInfoEx{}
		info.cbSize = uint32(unsafe.Sizeof(info))
		ok, _, infoErr := procGetMonitorInfoW.Call(h, uintptr(unsafe.Pointer(&info)))
		if ok == 0 {
			slog.Warn("[monitor] GetMonitorInfoW failed, skipping monitor", "error", infoErr)
			continue
		}
		scale := 1.0
		if dpiAvailable {
			var dpiX, dpiY uint32
			hr, _, _ := procGetDpiForMonitor.Call(
				h,
				mdtEffectiveDPI,
				uintptr(unsafe.Pointer(&dpiX)),
				uintptr(unsafe.Pointer(&dpiY)),
			)
			if hr == 0 && dpiX > 0 {
				scale = float64(dpiX) / defaultDPI
			}
		}
		out = append(out, Info{
			Name:    windows.UTF16ToString(info.szDevice[:]),
			X:       int(info.rcMonitor.left),
			Y:       int(info.rcMonitor.top),
			WorkX:   int(info.rcWork.left),
			WorkY:   int(info.rcWork.top),
			Width:   int(info.rcMonitor.right - info.rcMonitor.left),
			Height:  int(info.rcMonitor.bottom - info.rcMonitor.top),
			Scale:   normalizeScale(scale),
			Primary: info.dwFlags&monitorInfoFPrimary != 0,
		})
	}
	if ctx != nil {
		markCurrent(ctx, out)
	}
	return out, nil
}

// markCurrent copies Wails' current-screen flag onto out. Wails enumerates
// with the same EnumDisplayMonitors call, so entries pair up by index; a size
// mismatch means the lists diverged and nothing is flagged.
func markCurrent(ctx context.Context, out []Info) {
	screens, err := screenGetAllFn(ctx)
	if err != nil {
		slog.Debug("[monitor] current screen unavailable", "error", err)
		return
	}
	if len(screens) != len(out) {
		return
	}
	for i, s := range screens {
		if s.Width != out[i].Width || s.Height != out[i].Height {
			return
		}
	}
	for i, s := range screens {
		out[i].Current = s.IsCurrent
	}
}

// windowUnitScale is 1: Wails positions windows in physical pixels here.
func windowUnitScale(Info) float64 { return 1 }
