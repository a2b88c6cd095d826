package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// exerciseStore checks the ReservationStore contract against any backend.
// showing must be unused in the backend so counts start at zero.
func exerciseStore(t *testing.T, store ReservationStore, showing string) {
	t.Helper()
	ctx := context.Background()

	t.Run("concurrent attempts admit exactly one", func(t *testing.T) {
		const attempts = 32
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			admitted int
			taken    int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.TryReserve(ctx, showing, "A1", fmt.Sprintf("viewer-%d", i))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					admitted++
				case errors.Is(err, ErrAlreadyReserved):
					taken++
				default:
					t.Errorf("TryReserve: unexpected error %v", err)
				}
			}(i)
		}
		wg.Wait()
		if admitted != 1 || taken != attempts-1 {
			t.Fatalf("admitted=%d taken=%d, want 1 and %d", admitted, taken, attempts-1)
		}
		list, err := store.ListReservations(ctx, showing)
		if err != nil {
			t.Fatalf("ListReservations: %v", err)
		}
		if len(list) != 1 || list[0].SeatID != "A1" {
			t.Fatalf("stored %+v, want exactly one record for A1", list)
		}
	})

	t.Run("replay is rejected", func(t *testing.T) {
		rec, err := store.TryReserve(ctx, showing, "B7", "alice@example.com")
		if err != nil {
			t.Fatalf("first TryReserve: %v", err)
		}
		if rec.ShowingID != showing || rec.SeatID != "B7" || rec.Holder != "alice@example.com" || rec.CreatedAt.IsZero() {
			t.Fatalf("unexpected record %+v", rec)
		}
		if _, err := store.TryReserve(ctx, showing, "B7", "alice@example.com"); !errors.Is(err, ErrAlreadyReserved) {
			t.Fatalf("replay err = %v, want ErrAlreadyReserved", err)
		}
		list, err := store.ListReservations(ctx, showing)
		if err != nil {
			t.Fatalf("ListReservations: %v", err)
		}
		count := 0
		for _, r := range list {
			if r.SeatID == "B7" {
				count++
				if r.Holder != "alice@example.com" {
					t.Errorf("holder overwritten: %q", r.Holder)
				}
			}
		}
		if count != 1 {
			t.Fatalf("found %d records for B7, want 1", count)
		}
	})

	t.Run("showings are independent", func(t *testing.T) {
		other := showing + "-other"
		if _, err := store.TryReserve(ctx, other, "A1", "bob"); err != nil {
			t.Fatalf("TryReserve on other showing: %v", err)
		}
		list, err := store.ListReservations(ctx, other)
		if err != nil {
			t.Fatalf("ListReservations: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("other showing has %d records, want 1", len(list))
		}
	})

	t.Run("unknown showing lists empty", func(t *testing.T) {
		list, err := store.ListReservations(ctx, showing+"-missing")
		if err != nil {
			t.Fatalf("ListReservations: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("got %d records, want 0", len(list))
		}
	})
}
