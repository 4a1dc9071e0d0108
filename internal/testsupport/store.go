package testsupport

import (
	"context"
	"fmt"
	"testing"

	"concierge/internal/config"
	"concierge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedGuests inserts count guests named "Guest N" and returns their ids.
func SeedGuests(t testing.TB, store *queue.Store, count int) []int64 {
	t.Helper()

	ids := make([]int64, 0, count)
	for i := 1; i <= count; i++ {
		id, err := store.AddGuest(context.Background(), queue.Guest{
			Name:    fmt.Sprintf("Guest %d", i),
			Company: "Acme Hotels",
			City:    "Lisbon",
		})
		if err != nil {
			t.Fatalf("store.AddGuest: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}
