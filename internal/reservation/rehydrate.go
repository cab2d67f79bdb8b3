package reservation

import (
	"context"
	"fmt"

	"github.com/iliyamo/ticket-reservation/internal/store"
)

// Rehydrate seeds the engine's seat map from the store's seats of record.
// It runs once at startup, before traffic: the seat map is not persisted,
// so sold seats are reconstructed from their orders while holds, which
// are not durable, come back empty.  Returns the number of seats loaded.
func Rehydrate(ctx context.Context, e *Engine, seeder store.SeatSeeder) (int, error) {
	seats, err := seeder.Seats(ctx)
	if err != nil {
		return 0, fmt.Errorf("rehydrate: %w", err)
	}
	n := 0
	for _, s := range seats {
		if e.PutSeat(s) {
			n++
		}
	}
	return n, nil
}
