// Package broadcast delivers reservation outcomes to connected sessions.
package broadcast

import (
	"github.com/iliyamo/cinema-seat-sync/internal/model"
	"github.com/iliyamo/cinema-seat-sync/internal/session"
)

// Fanout delivers messages to the sessions of a Registry.  Delivery is
// best effort and at most once per session: a session that is closing or
// whose queue is full misses the message and catches up from the snapshot
// on reconnect.
type Fanout struct {
	registry *session.Registry
}

// New returns a Fanout over registry.
func New(registry *session.Registry) *Fanout {
	return &Fanout{registry: registry}
}

// Broadcast sends msg to every live session and returns how many accepted it.
func (f *Fanout) Broadcast(msg model.Message) int {
	delivered := 0
	for _, s := range f.registry.Snapshot() {
		if s.Send(msg) {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers msg to one session.  It returns false when the session is
// gone or did not accept the message.
func (f *Fanout) SendTo(sessionID string, msg model.Message) bool {
	s := f.registry.Get(sessionID)
	if s == nil {
		return false
	}
	return s.Send(msg)
}
