package capture

import "encoding/json"

// InputEvent is a normalized event published to the presentation layer.
// The concrete types are KeyEvent, MouseButtonEvent, MouseMoveEvent and
// MouseWheelEvent; each marshals with a "type" tag naming its variant.
type InputEvent interface {
	EventType() string
}

// MouseButton names a mouse button for the frontend.
type MouseButton string

const (
	MouseLeft   MouseButton = "Left"
	MouseRight  MouseButton = "Right"
	MouseMiddle MouseButton = "Middle"
	MouseOther  MouseButton = "Other"
)

type KeyEvent struct {
	Pressed bool   `json:"pressed"`
	Name    string `json:"name"`
}

type MouseButtonEvent struct {
	Pressed bool        `json:"pressed"`
	Button  MouseButton `json:"button"`
}

// MouseMoveEvent carries logical coordinates relative to the calibrated monitor.
type MouseMoveEvent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type MouseWheelEvent struct {
	DeltaX int64 `json:"delta_x"`
	DeltaY int64 `json:"delta_y"`
}

func (KeyEvent) EventType() string         { return "KeyEvent" }
func (MouseButtonEvent) EventType() string { return "MouseButtonEvent" }
func (MouseMoveEvent) EventType() string   { return "MouseMoveEvent" }
func (MouseWheelEvent) EventType() string  { return "MouseWheelEvent" }

func (e KeyEvent) MarshalJSON() ([]byte, error) {
	type plain KeyEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{e.EventType(), plain(e)})
}

func (e MouseButtonEvent) MarshalJSON() ([]byte, error) {
	type plain MouseButtonEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{e.EventType(), plain(e)})
}

func (e MouseMoveEvent) MarshalJSON() ([]byte, error) {
	type plain MouseMoveEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{e.EventType(), plain(e)})
}

func (e MouseWheelEvent) MarshalJSON() ([]byte, error) {
	type plain MouseWheelEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{e.EventType(), plain(e)})
}
