// Package session tracks connected viewers.  A Session owns one transport
// connection and a bounded outbound queue drained by a single writer
// goroutine; the Registry is the concurrency-safe table of live sessions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
)

// ErrClosed is returned by Run when the session was closed locally rather
// than by a transport failure.
var ErrClosed = errors.New("session closed")

const (
	// QueueSize bounds the outbound queue of a session.
	QueueSize = 64
	// maxPending bounds messages held before the snapshot is delivered.
	maxPending = QueueSize
)

// Conn is the part of a websocket connection a Session writes to.
// *websocket.Conn from gorilla/websocket satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one connected viewer.
//
// Messages sent before Prime are held and delivered right after the
// snapshot, so a viewer always receives initialSeats first and never misses
// an admission that happened while its snapshot was being read.
type Session struct {
	ID        string
	CreatedAt time.Time

	conn Conn

	mu      sync.Mutex
	primed  bool
	closed  bool
	pending []model.Message

	out  chan model.Message
	done chan struct{}
}

// New wraps conn in a Session.  The caller must start Run.
func New(id string, conn Conn) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		conn:      conn,
		out:       make(chan model.Message, QueueSize),
		done:      make(chan struct{}),
	}
}

// Alive reports whether the session can still receive messages.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send enqueues msg without blocking.  It returns false when the session
// is closed or its queue is full; the message is dropped in both cases.
func (s *Session) Send(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !s.primed {
		if len(s.pending) >= maxPending {
			return false
		}
		s.pending = append(s.pending, msg)
		return true
	}
	return s.enqueueLocked(msg)
}

// Prime delivers the snapshot followed by any messages held since the
// session was created.  Calls after the first are ignored.
func (s *Session) Prime(snapshot model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.primed {
		return
	}
	s.primed = true
	s.enqueueLocked(snapshot)
	for _, m := range s.pending {
		s.enqueueLocked(m)
	}
	s.pending = nil
}

func (s *Session) enqueueLocked(msg model.Message) bool {
	select {
	case s.out <- msg:
		return true
	default:
		return false
	}
}

// Close marks the session dead and closes the connection.  It is safe to
// call more than once and concurrently with Send.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	close(s.done)
	s.mu.Unlock()
	_ = s.conn.Close()
}

// Run writes queued messages and periodic pings until the session closes
// or a write fails.  A write failure closes the session.
func (s *Session) Run(writeWait, pingPeriod time.Duration) error {
	if pingPeriod <= 0 {
		pingPeriod = time.Minute
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return ErrClosed
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.Close()
				return err
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.Close()
				return err
			}
		}
	}
}
