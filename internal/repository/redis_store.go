package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
)

// RedisStore keeps one hash per showing: field = seat id, value = the JSON
// encoded reservation.  HSETNX is atomic on the server, which gives the
// first-writer-wins guarantee without a client-side lock.  Durability is
// whatever the Redis persistence configuration provides (AOF recommended).
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore constructs a RedisStore.  Keys are "<prefix>:<showing>";
// an empty prefix defaults to "seats".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "seats"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: func() time.Time { return time.Now().UTC() }}
}

func (s *RedisStore) key(showingID string) string { return s.prefix + ":" + showingID }

// TryReserve sets the seat field only if it does not exist yet.
func (s *RedisStore) TryReserve(ctx context.Context, showingID, seatID, holder string) (model.SeatReservation, error) {
	rec := model.SeatReservation{
		ShowingID: showingID,
		SeatID:    seatID,
		Holder:    holder,
		CreatedAt: s.now(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return model.SeatReservation{}, unavailable("encode reservation", err)
	}
	ok, err := s.rdb.HSetNX(ctx, s.key(showingID), seatID, payload).Result()
	if err != nil {
		return model.SeatReservation{}, unavailable("hsetnx", err)
	}
	if !ok {
		return model.SeatReservation{}, ErrAlreadyReserved
	}
	return rec, nil
}

// ListReservations decodes every field of the showing hash.  A field whose
// value fails to decode still marks the seat as taken.
func (s *RedisStore) ListReservations(ctx context.Context, showingID string) ([]model.SeatReservation, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(showingID)).Result()
	if err != nil {
		return nil, unavailable("hgetall", err)
	}
	out := make([]model.SeatReservation, 0, len(vals))
	for seatID, raw := range vals {
		var rec model.SeatReservation
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			rec = model.SeatReservation{ShowingID: showingID}
		}
		rec.SeatID = seatID
		out = append(out, rec)
	}
	sortReservations(out)
	return out, nil
}
