package gateway

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
	"github.com/iliyamo/cinema-seat-sync/internal/repository"
	"github.com/iliyamo/cinema-seat-sync/internal/session"
)

func testLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

type captureConn struct {
	out chan model.Message
}

func newCaptureConn() *captureConn { return &captureConn{out: make(chan model.Message, 16)} }

func (c *captureConn) WriteJSON(v interface{}) error {
	c.out <- v.(model.Message)
	return nil
}
func (c *captureConn) WriteControl(int, []byte, time.Time) error { return nil }
func (c *captureConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *captureConn) Close() error                              { return nil }

func (c *captureConn) next(t *testing.T) model.Message {
	t.Helper()
	select {
	case m := <-c.out:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return model.Message{}
	}
}

type downStore struct{}

func (downStore) TryReserve(context.Context, string, string, string) (model.SeatReservation, error) {
	return model.SeatReservation{}, errors.New("unused")
}
func (downStore) ListReservations(context.Context, string) ([]model.SeatReservation, error) {
	return nil, repository.ErrStoreUnavailable
}

func TestConnectSendsCompleteSnapshot(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	for _, seat := range []string{"A1", "B4", "C2"} {
		if _, err := store.TryReserve(ctx, "movie123", seat, "x"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.TryReserve(ctx, "other", "Z9", "x"); err != nil {
		t.Fatal(err)
	}

	reg := session.NewRegistry()
	gw := New(store, reg, "movie123", time.Second, testLogger())
	conn := newCaptureConn()
	s := session.New("s1", conn)
	go s.Run(time.Second, time.Minute)
	defer s.Close()

	gw.Connect(ctx, s)
	if reg.Get("s1") == nil {
		t.Fatal("session not registered")
	}
	msg := conn.next(t)
	if msg.Event != model.EventInitialSeats {
		t.Fatalf("event = %q", msg.Event)
	}
	got := append([]string(nil), msg.Data.([]string)...)
	sort.Strings(got)
	want := []string{"A1", "B4", "C2"}
	if len(got) != len(want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}
}

func TestConnectWithStoreDownSendsEmptySnapshot(t *testing.T) {
	reg := session.NewRegistry()
	gw := New(downStore{}, reg, "movie123", time.Second, testLogger())
	conn := newCaptureConn()
	s := session.New("s1", conn)
	go s.Run(time.Second, time.Minute)
	defer s.Close()

	if seats := gw.Connect(context.Background(), s); seats != nil {
		t.Fatalf("Connect returned %v, want nil", seats)
	}
	if reg.Get("s1") == nil {
		t.Fatal("session must stay registered when the snapshot fails")
	}
	msg := conn.next(t)
	if msg.Event != model.EventInitialSeats || len(msg.Data.([]string)) != 0 {
		t.Fatalf("got %+v, want empty initialSeats", msg)
	}
}

func TestDisconnectRemovesAndCloses(t *testing.T) {
	reg := session.NewRegistry()
	gw := New(repository.NewMemoryStore(), reg, "movie123", time.Second, testLogger())
	s := session.New("s1", newCaptureConn())
	gw.Connect(context.Background(), s)

	gw.Disconnect("s1")
	gw.Disconnect("s1")
	if reg.Len() != 0 {
		t.Fatalf("Len = %d after disconnect", reg.Len())
	}
	if s.Alive() {
		t.Fatal("session still alive after disconnect")
	}
}
