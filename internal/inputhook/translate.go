package inputhook

// libuiohook event type numbering, which robotn/gohook exposes unchanged.
// gohook names them KeyDown/KeyHold/KeyUp and MouseUp/MouseHold/MouseDown;
// the names below follow what libuiohook actually reports.
const (
	uioHookEnabled     uint8 = 1
	uioHookDisabled    uint8 = 2
	uioKeyTyped        uint8 = 3
	uioKeyPressed      uint8 = 4
	uioKeyReleased     uint8 = 5
	uioMouseClicked    uint8 = 6
	uioMousePressed    uint8 = 7
	uioMouseReleased   uint8 = 8
	uioMouseMoved      uint8 = 9
	uioMouseDragged    uint8 = 10
	uioMouseWheel      uint8 = 11
	uioWheelVertical   uint8 = 3
	uioWheelHorizontal uint8 = 4
)

// RawHookEvent carries the libuiohook fields the translator needs.
type RawHookEvent struct {
	Kind      uint8
	Keycode   uint16
	Button    uint16
	X         int16
	Y         int16
	Rotation  int64
	Direction uint8
}

// HookStatus reports lifecycle notifications that carry no input.
type HookStatus uint8

const (
	StatusNone HookStatus = iota
	StatusEnabled
	StatusDisabled
)

// Translate converts a libuiohook notification into an Event. ok is false for
// notifications that are not forwarded (typed characters, click summaries,
// lifecycle events); status reports hook enable/disable transitions.
func Translate(raw RawHookEvent) (ev Event, ok bool, status HookStatus) {
	switch raw.Kind {
	case uioHookEnabled:
		return Event{}, false, StatusEnabled
	case uioHookDisabled:
		return Event{}, false, StatusDisabled
	case uioKeyPressed:
		return Event{Kind: KeyPress, Key: KeyName(raw.Keycode)}, true, StatusNone
	case uioKeyReleased:
		return Event{Kind: KeyRelease, Key: KeyName(raw.Keycode)}, true, StatusNone
	case uioMousePressed:
		return Event{Kind: ButtonPress, Button: mapButton(raw.Button)}, true, StatusNone
	case uioMouseReleased:
		return Event{Kind: ButtonRelease, Button: mapButton(raw.Button)}, true, StatusNone
	case uioMouseMoved, uioMouseDragged:
		return Event{Kind: MouseMove, X: float64(raw.X), Y: float64(raw.Y)}, true, StatusNone
	case uioMouseWheel:
		ev := Event{Kind: Wheel}
		if raw.Direction == uioWheelHorizontal {
			ev.DeltaX = raw.Rotation
		} else {
			// libuiohook rotation is positive when scrolling toward the user;
			// the presentation layer expects positive = up.
			ev.DeltaY = -raw.Rotation
		}
		return ev, true, StatusNone
	case uioKeyTyped, uioMouseClicked:
		return Event{}, false, StatusNone
	default:
		return Event{}, false, StatusNone
	}
}

func mapButton(b uint16) Button {
	switch b {
	case 1:
		return ButtonLeft
	case 2:
		return ButtonRight
	case 3:
		return ButtonMiddle
	default:
		return ButtonOther
	}
}
