package workout

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type restMode int

const (
	restIdle restMode = iota
	// restTicking: the in-process tick drives the countdown (app in foreground).
	restTicking
	// restScheduled: a one-shot alert is pending (app in background).
	restScheduled
)

func (m restMode) String() string {
	switch m {
	case restTicking:
		return "ticking"
	case restScheduled:
		return "scheduled"
	default:
		return "idle"
	}
}

type restSource string

const (
	restSourceTick       restSource = "tick"
	restSourceAlert      restSource = "alert"
	restSourceForeground restSource = "foreground"
	restSourceBackground restSource = "background"
	restSourceSkip       restSource = "skip"
)

// restTimer is anchored on startedAt and duration, remaining time is always derived
// from them and never decremented. At most one of tickStop / alertHandle is set.
type restTimer struct {
	gen          uint64
	startedAt    time.Time
	duration     time.Duration
	exerciseID   string
	nextSetIndex int

	mode        restMode
	tickStop    chan struct{}
	alertHandle string
}

func (t *restTimer) remaining(now time.Time) time.Duration {
	left := t.duration - now.Sub(t.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// remainingSeconds rounds up, so a countdown shows 1 until it is really over.
func (t *restTimer) remainingSeconds(now time.Time) int {
	left := t.remaining(now)
	secs := int(left / time.Second)
	if left%time.Second > 0 {
		secs++
	}
	return secs
}

func (c *Controller) startRest(ctx context.Context, restSeconds int, nextSetIndex int) {
	if restSeconds <= 0 {
		restSeconds = c.defaultRest
	}

	c.timerGen++
	c.timer = &restTimer{
		gen:          c.timerGen,
		startedAt:    c.clock.Now(),
		duration:     time.Duration(restSeconds) * time.Second,
		exerciseID:   c.exercise.ExerciseID,
		nextSetIndex: nextSetIndex,
	}
	c.state = Resting

	if c.appState == Background {
		c.scheduleAlert(ctx, c.timer.duration)
		return
	}
	c.startTicking(ctx)
}

// startTicking enters the ForegroundTicking sub-state, cancelling any pending alert first.
func (c *Controller) startTicking(ctx context.Context) {
	t := c.timer
	c.cancelAlert(ctx)
	c.stopTicking()

	stop := make(chan struct{})
	ticker := c.clock.NewTicker(c.tickInterval)
	t.tickStop = stop
	t.mode = restTicking

	gen := t.gen
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				if done := c.onTick(gen); done {
					return
				}
			}
		}
	}()
}

func (c *Controller) stopTicking() {
	t := c.timer
	if t == nil || t.tickStop == nil {
		return
	}
	close(t.tickStop)
	t.tickStop = nil
	if t.mode == restTicking {
		t.mode = restIdle
	}
}

// scheduleAlert enters the BackgroundScheduled sub-state. The tick is stopped and a previous
// alert is always cancelled before a new one is created. Non-positive delays are never scheduled.
func (c *Controller) scheduleAlert(ctx context.Context, after time.Duration) {
	t := c.timer
	c.stopTicking()
	c.cancelAlert(ctx)

	if after <= 0 || c.alerts == nil {
		return
	}

	// the scheduler works in whole seconds, round up so the alert never fires early
	if rem := after % time.Second; rem > 0 {
		after += time.Second - rem
	}

	handle, err := c.alerts.ScheduleOneShot(ctx, after, c.restAlert(t))
	if err != nil {
		schedErr := &NotificationScheduleError{Op: "schedule", Err: err}
		log.Errorf("workout [%s]: %s", c.userID, schedErr)
		c.countAlert("failed")
		return
	}

	t.alertHandle = handle
	t.mode = restScheduled
	c.countAlert("scheduled")
	log.Tracef("workout [%s]: rest alert [%s] scheduled in %s", c.userID, handle, after)
}

func (c *Controller) cancelAlert(ctx context.Context) {
	t := c.timer
	if t == nil || t.alertHandle == "" {
		return
	}

	handle := t.alertHandle
	t.alertHandle = ""
	if t.mode == restScheduled {
		t.mode = restIdle
	}

	if err := c.alerts.CancelOneShot(ctx, handle); err != nil {
		cancelErr := &NotificationScheduleError{Op: "cancel", Err: err}
		log.Warnf("workout [%s]: %s", c.userID, cancelErr)
		return
	}
	c.countAlert("cancelled")
}

// clearRest drops every timer resource without changing the state.
func (c *Controller) clearRest(ctx context.Context) {
	if c.timer == nil {
		return
	}
	c.stopTicking()
	c.cancelAlert(ctx)
	c.timer = nil
}

// finishRest moves on to the next set of the current exercise.
func (c *Controller) finishRest(ctx context.Context, source restSource) {
	t := c.timer
	c.clearRest(ctx)
	c.state = ExecutingSet
	c.setIndex = t.nextSetIndex

	if c.metrics != nil {
		c.metrics.CounterRestsFinished.WithLabelValues(string(source)).Inc()
	}

	switch source {
	case restSourceTick:
		// redundant local alert while in the foreground, sent once the lock is released
		if c.alerts != nil {
			c.pendingAlerts = append(c.pendingAlerts, c.restAlert(t))
		}
		c.emit(EventRestFinished, "Rest finished, time for the next set", nil)
	case restSourceSkip:
		// user asked for it, nothing to announce
	default:
		c.emit(EventRestFinished, "Rest finished", nil)
	}
}

func (c *Controller) onTick(gen uint64) (done bool) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.closed || c.timer == nil || c.timer.gen != gen || c.timer.mode != restTicking {
		return true
	}
	if c.timer.remaining(c.clock.Now()) > 0 {
		return false
	}

	ctx, cancel := c.callbackCtx()
	defer cancel()
	c.finishRest(ctx, restSourceTick)
	return true
}

func (c *Controller) onLifecycleChange(state AppState) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.closed || c.appState == state {
		return
	}
	c.appState = state
	if c.state != Resting || c.timer == nil {
		return
	}

	ctx, cancel := c.callbackCtx()
	defer cancel()

	remaining := c.timer.remaining(c.clock.Now())
	switch state {
	case Background:
		if remaining <= 0 {
			c.finishRest(ctx, restSourceBackground)
			return
		}
		c.scheduleAlert(ctx, remaining)
	case Foreground:
		c.cancelAlert(ctx)
		if remaining <= 0 {
			c.finishRest(ctx, restSourceForeground)
			return
		}
		c.startTicking(ctx)
	}
}

// onAlertFired treats a fired alert for the current rest like the countdown reaching zero.
// Alerts for any other rest (or arriving after the transition) are ignored.
func (c *Controller) onAlertFired(handle string, alert Alert) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.closed || c.state != Resting || c.timer == nil || c.session == nil {
		return
	}
	if alert.SessionID != c.session.id ||
		alert.ExerciseID != c.timer.exerciseID ||
		alert.NextSetIndex != c.timer.nextSetIndex {
		return
	}

	if c.timer.alertHandle == handle {
		// already fired, nothing left to cancel
		c.timer.alertHandle = ""
		c.timer.mode = restIdle
	}
	c.countAlert("fired")

	ctx, cancel := c.callbackCtx()
	defer cancel()
	c.finishRest(ctx, restSourceAlert)
}

func (c *Controller) restAlert(t *restTimer) Alert {
	exerciseName := t.exerciseID
	if c.exercise != nil {
		exerciseName = c.exercise.Name
	}
	return Alert{
		UserID:       c.userID,
		SessionID:    c.session.id,
		ExerciseID:   t.exerciseID,
		NextSetIndex: t.nextSetIndex,
		Title:        "Rest finished",
		Body:         fmt.Sprintf("%s: time for set %d", exerciseName, t.nextSetIndex+1),
	}
}

// notifyNow runs without the controller lock, a slow push must not block the controller.
func (c *Controller) notifyNow(alerts []Alert) {
	if len(alerts) == 0 || c.alerts == nil {
		return
	}

	ctx, cancel := c.callbackCtx()
	defer cancel()
	for _, alert := range alerts {
		if err := c.alerts.NotifyNow(ctx, alert); err != nil {
			log.Warnf("workout [%s]: %s", c.userID, &NotificationScheduleError{Op: "notify", Err: err})
			continue
		}
		c.countAlert("sent")
	}
}

func (c *Controller) countAlert(op string) {
	if c.metrics != nil {
		c.metrics.CounterAlerts.WithLabelValues(op).Inc()
	}
}
