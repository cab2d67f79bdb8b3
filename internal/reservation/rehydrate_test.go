package reservation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/store"
)

func TestRehydrateFromStore(t *testing.T) {
	mem := store.NewMemStore()
	mem.SeedSeats([]model.Seat{
		{EventID: "EV1", SeatID: "S01", PriceCents: 2500, Status: model.StatusAvailable},
		{EventID: "EV1", SeatID: "S02", PriceCents: 2500, Status: model.StatusSold, LastOrderID: "ORD-3"},
		{EventID: "", SeatID: "bad", PriceCents: 1}, // rejected
	})
	e := New(Config{Capacity: 64}, mem, store.NotFoundPrices{})

	n, err := Rehydrate(context.Background(), e, mem)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, ok := e.SeatGet("EV1", "S01")
	require.True(t, ok)
	assert.Equal(t, model.StatusAvailable, v.Status)

	// Sold seats come back SOLD with their order linked; holds do not
	// survive a restart.
	s, ok := e.Map().Get("EV1", "S02")
	require.True(t, ok)
	assert.Equal(t, model.StatusSold, s.Status)
	assert.Equal(t, "ORD-3", s.LastOrderID)

	h := e.PlaceHold("U1", "EV1", "S02")
	assert.Equal(t, CodeAlreadySold, h.Code)
}
