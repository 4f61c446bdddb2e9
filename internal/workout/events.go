package workout

import "time"

type EventKind string

const (
	EventToast        EventKind = "toast"
	EventError        EventKind = "error"
	EventRestFinished EventKind = "rest_finished"
)

// Event is a user facing message produced by the controller.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	At      time.Time `json:"at"`
}

func (c *Controller) emit(kind EventKind, msg string, err error) {
	c.pending = append(c.pending, Event{
		Kind:    kind,
		Message: msg,
		Err:     err,
		At:      c.clock.Now(),
	})
}

// unlockAndFlush releases the controller lock and only then sends queued notifications and
// hands the pending events to the listener, so a listener may call back into the controller.
func (c *Controller) unlockAndFlush() {
	events := c.pending
	alerts := c.pendingAlerts
	c.pending = nil
	c.pendingAlerts = nil
	c.mu.Unlock()

	c.notifyNow(alerts)

	if c.onEvent == nil {
		return
	}
	for _, ev := range events {
		c.onEvent(ev)
	}
}
