package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-reservation/internal/model"
)

func TestOrderVisibleOnlyAfterCommit(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	token := []byte("tok-commit")

	txn, err := s.Begin(ctx)
	require.NoError(t, err)

	orderID, err := s.OrderCreate(ctx, txn, "U1", "EV1", "S01", 2500, token)
	require.NoError(t, err)
	require.NotEmpty(t, orderID)
	require.NoError(t, s.SeatMarkSold(ctx, txn, "EV1", "S01", orderID))

	// Staged rows are invisible before commit.
	_, _, err = s.OrderFindByToken(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, txn.Commit())

	gotID, price, err := s.OrderFindByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, orderID, gotID)
	assert.EqualValues(t, 2500, price)

	o, err := s.OrderFindByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "U1", o.UserID)
	assert.Equal(t, "EV1", o.EventID)
	assert.Equal(t, "S01", o.SeatID)

	sold, ok := s.SoldOrderID("EV1", "S01")
	require.True(t, ok)
	assert.Equal(t, orderID, sold)
}

func TestRollbackDiscardsStagedRows(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	token := []byte("tok-rollback")

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	orderID, err := s.OrderCreate(ctx, txn, "U1", "EV1", "S01", 2500, token)
	require.NoError(t, err)
	txn.Rollback()

	_, _, err = s.OrderFindByToken(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.OrderFindByID(ctx, orderID)
	assert.ErrorIs(t, err, ErrNotFound)

	// A spent handle refuses further work.
	assert.Error(t, txn.Commit())
	_, err = s.OrderCreate(ctx, txn, "U1", "EV1", "S01", 2500, token)
	assert.Error(t, err)
}

func TestOrderIDsAreUnique(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	seen := map[string]struct{}{}
	for i := 0; i < 10; i++ {
		txn, err := s.Begin(ctx)
		require.NoError(t, err)
		id, err := s.OrderCreate(ctx, txn, "U1", "EV1", "S01", 100, []byte{byte(i + 1)})
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
		_, dup := seen[id]
		require.False(t, dup, "order id %s minted twice", id)
		seen[id] = struct{}{}
	}
}

func TestRefundCreate(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	orderID, err := s.OrderCreate(ctx, txn, "U1", "EV1", "S01", 2500, []byte("t"))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	txn, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.RefundCreate(ctx, txn, "U1", orderID, 2500))
	assert.Zero(t, s.RefundCount(orderID), "refund invisible before commit")
	require.NoError(t, txn.Commit())
	assert.Equal(t, 1, s.RefundCount(orderID))
}

func TestSeatSeeder(t *testing.T) {
	s := NewMemStore()
	s.SeedSeats([]model.Seat{
		{EventID: "EV1", SeatID: "S01", PriceCents: 2500, Status: model.StatusAvailable},
		{EventID: "EV1", SeatID: "S02", PriceCents: 2500, Status: model.StatusSold, LastOrderID: "ORD-7"},
	})
	seats, err := s.Seats(context.Background())
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, model.StatusSold, seats[1].Status)
}

func TestStaticPrices(t *testing.T) {
	p := NewStaticPrices(map[string]int32{"EV1|S01": 2500})
	ctx := context.Background()

	got, err := p.AuthoritativePrice(ctx, "EV1", "S01")
	require.NoError(t, err)
	assert.EqualValues(t, 2500, got)

	_, err = p.AuthoritativePrice(ctx, "EV1", "S99")
	assert.ErrorIs(t, err, ErrNotFound)

	p.Set("EV1", "S99", 100)
	got, err = p.AuthoritativePrice(ctx, "EV1", "S99")
	require.NoError(t, err)
	assert.EqualValues(t, 100, got)

	_, err = NotFoundPrices{}.AuthoritativePrice(ctx, "EV1", "S01")
	assert.ErrorIs(t, err, ErrNotFound)
}
