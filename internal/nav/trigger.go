package nav

// NavigateEvent is emitted by a Trigger exactly once per press.
type NavigateEvent int

// Trigger events.
const (
	NavigateNone NavigateEvent = iota
	NavigateNext
	NavigatePrev
)

// Trigger turns a per-frame sampled button (VR controller stick flick or
// button, mouse button) into discrete navigation events. It is a two-state
// machine: only the up-to-down transition fires, so holding the button does
// not repeat. This adapter stays outside the engine, which never polls.
type Trigger struct {
	event NavigateEvent
	down  bool
}

// NewTrigger creates a trigger that emits the given event on each press.
func NewTrigger(event NavigateEvent) *Trigger {
	return &Trigger{event: event}
}

// Sample feeds the current frame's button state and returns the event for
// this frame: the trigger's event on the up-to-down edge, NavigateNone
// otherwise.
func (t *Trigger) Sample(pressed bool) NavigateEvent {
	wasDown := t.down
	t.down = pressed
	if pressed && !wasDown {
		return t.event
	}
	return NavigateNone
}
