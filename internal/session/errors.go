package session

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/sessiond/internal/hooks"
)

// ErrSessionNotFound is returned for operations on unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// BlockedError reports that a hook vetoed a lifecycle transition.
type BlockedError struct {
	Event  hooks.LifecycleEvent
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s blocked by hook", e.Event)
	}
	return fmt.Sprintf("%s blocked by hook: %s", e.Event, e.Reason)
}

// IsBlocked reports whether err is a hook veto and returns it if so.
func IsBlocked(err error) (*BlockedError, bool) {
	var be *BlockedError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
