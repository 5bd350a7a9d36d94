package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Daskott/lifealert/server/dispatch"
)

const DEFAULT_LOCATE_TIMEOUT = 10 * time.Second

type State int

const (
	Idle State = iota
	Locating
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Locating:
		return "locating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Status struct {
	State   State
	Message string
}

// AlertSender submits an alert on behalf of userID
type AlertSender interface {
	SendAlert(ctx context.Context, userID string, loc dispatch.Location) (*AlertResult, error)
}

// Trigger is the one-button alert flow: locate, submit, report. Each call to
// Fire runs the flow once; nothing is retried.
type Trigger struct {
	locator       Locator
	sender        AlertSender
	userID        string
	locateTimeout time.Duration

	// OnChange is called with every status the trigger moves through
	OnChange func(Status)

	mu     sync.Mutex
	status Status
}

func NewTrigger(locator Locator, sender AlertSender, userID string) *Trigger {
	return &Trigger{
		locator:       locator,
		sender:        sender,
		userID:        userID,
		locateTimeout: DEFAULT_LOCATE_TIMEOUT,
		status:        Status{State: Idle},
	}
}

func (t *Trigger) SetLocateTimeout(timeout time.Duration) {
	t.locateTimeout = timeout
}

func (t *Trigger) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Fire runs the alert flow and returns the final status, which is always
// Succeeded or Failed
func (t *Trigger) Fire(ctx context.Context) Status {
	t.transition(Idle, "")
	t.transition(Locating, "Getting your location...")

	locateCtx, cancel := context.WithTimeout(ctx, t.locateTimeout)
	loc, err := t.locator.Locate(locateCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %v", t.locateTimeout)
		}
		return t.transition(Failed, fmt.Sprintf("Location unavailable: %v", err))
	}

	t.transition(Submitting, "Sending alert...")

	result, err := t.sender.SendAlert(ctx, t.userID, loc)
	if err != nil {
		message := err.Error()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			message = apiErr.Message
		}
		return t.transition(Failed, message)
	}

	return t.transition(Succeeded, fmt.Sprintf("ALERT SENT SUCCESSFULLY! reached %d of %d contacts",
		result.Delivered, result.Recipients()))
}

func (t *Trigger) transition(state State, message string) Status {
	t.mu.Lock()
	t.status = Status{State: state, Message: message}
	status := t.status
	t.mu.Unlock()

	if t.OnChange != nil {
		t.OnChange(status)
	}

	return status
}
