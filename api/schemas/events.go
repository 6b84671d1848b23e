package schemas

import "time"

// EventKind discriminates the closed set of input event variants. Consumers
// switch on Kind rather than probing optional fields.
type EventKind string

const (
	EventPointerMove EventKind = "pointer_move"
	EventButtonDown  EventKind = "button_down"
	EventButtonUp    EventKind = "button_up"
	EventScroll      EventKind = "scroll"
	EventKeyDown     EventKind = "key_down"
	EventKeyUp       EventKind = "key_up"

	// EventCaptureLost is the terminal marker appended when the raw hardware
	// source disappears mid-session. No events follow it.
	EventCaptureLost EventKind = "capture_lost"
)

// MouseButton identifies a physical pointer button. The string values align
// with standard DOM event types and common automation protocols.
type MouseButton string

const (
	ButtonNone   MouseButton = "none"
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Modifiers is a bitfield of keyboard modifiers held during an event.
type Modifiers int64

const (
	ModAlt   Modifiers = 1
	ModCtrl  Modifiers = 2
	ModMeta  Modifiers = 4
	ModShift Modifiers = 8
)

// InputEvent is one timestamped hardware event. Timestamp is a monotonic
// offset from the start of its session, strictly increasing within a session
// (the recorder breaks timestamp ties by insertion order). Events are
// immutable once recorded.
type InputEvent struct {
	Timestamp time.Duration `json:"ts"`
	Kind      EventKind     `json:"kind"`

	// Pointer fields, populated for pointer_move, button_*, and scroll.
	X      float64     `json:"x,omitempty"`
	Y      float64     `json:"y,omitempty"`
	Button MouseButton `json:"button,omitempty"`
	DeltaX float64     `json:"dx,omitempty"`
	DeltaY float64     `json:"dy,omitempty"`

	// Key fields, populated for key_down and key_up. Key is the logical key
	// id ("a", "Shift", "Backspace"), not a scan code.
	Key       string    `json:"key,omitempty"`
	Modifiers Modifiers `json:"mods,omitempty"`
}

// IsPointer reports whether the event belongs to the pointer stream.
func (e InputEvent) IsPointer() bool {
	switch e.Kind {
	case EventPointerMove, EventButtonDown, EventButtonUp, EventScroll:
		return true
	}
	return false
}

// IsKeyboard reports whether the event belongs to the keyboard stream.
func (e InputEvent) IsKeyboard() bool {
	return e.Kind == EventKeyDown || e.Kind == EventKeyUp
}

// RecordingSession is an ordered InputEvent log plus metadata. It is owned by
// the session store and read-only once ended.
type RecordingSession struct {
	ID        string    `json:"id"`
	TaskLabel string    `json:"task_label,omitempty"`
	StartedAt time.Time `json:"started_at"`
	// EndedAt is zero while the session is still open for writes.
	EndedAt time.Time    `json:"ended_at,omitempty"`
	Events  []InputEvent `json:"events"`

	// TargetWidths carries optional hints from the surrounding system: the
	// on-screen width in pixels of the target clicked by the button_down
	// event at the given index into Events. Absent hints leave the timing-law
	// regression to its documented defaults.
	TargetWidths map[int]float64 `json:"target_widths,omitempty"`
}

// Ended reports whether the session has been closed for writes.
func (s *RecordingSession) Ended() bool {
	return !s.EndedAt.IsZero()
}
