package reservation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/store"
)

// faultStore wraps the in-memory store with switchable failure points.
type faultStore struct {
	*store.MemStore
	failFindByToken bool
	failFindByID    bool
	failBegin       bool
	failCreate      bool
	failCommit      bool
	failRefund      bool
}

type faultTxn struct {
	store.Txn
	failCommit bool
}

func (t *faultTxn) Commit() error {
	if t.failCommit {
		t.Txn.Rollback()
		return store.ErrUnavailable
	}
	return t.Txn.Commit()
}

func (f *faultStore) Begin(ctx context.Context) (store.Txn, error) {
	if f.failBegin {
		return nil, store.ErrUnavailable
	}
	txn, err := f.MemStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultTxn{Txn: txn, failCommit: f.failCommit}, nil
}

func (f *faultStore) OrderFindByToken(ctx context.Context, token []byte) (string, int32, error) {
	if f.failFindByToken {
		return "", 0, store.ErrUnavailable
	}
	return f.MemStore.OrderFindByToken(ctx, token)
}

func (f *faultStore) OrderFindByID(ctx context.Context, orderID string) (model.Order, error) {
	if f.failFindByID {
		return model.Order{}, store.ErrUnavailable
	}
	return f.MemStore.OrderFindByID(ctx, orderID)
}

func (f *faultStore) OrderCreate(ctx context.Context, txn store.Txn, userID, eventID, seatID string, priceCents int32, token []byte) (string, error) {
	if f.failCreate {
		return "", store.ErrUnavailable
	}
	inner := txn.(*faultTxn).Txn
	return f.MemStore.OrderCreate(ctx, inner, userID, eventID, seatID, priceCents, token)
}

func (f *faultStore) SeatMarkSold(ctx context.Context, txn store.Txn, eventID, seatID, orderID string) error {
	inner := txn.(*faultTxn).Txn
	return f.MemStore.SeatMarkSold(ctx, inner, eventID, seatID, orderID)
}

func (f *faultStore) RefundCreate(ctx context.Context, txn store.Txn, userID, orderID string, amountCents int32) error {
	if f.failRefund {
		return store.ErrUnavailable
	}
	inner := txn.(*faultTxn).Txn
	return f.MemStore.RefundCreate(ctx, inner, userID, orderID, amountCents)
}

func newFaultEngine(t *testing.T) (*Engine, *faultStore) {
	t.Helper()
	fs := &faultStore{MemStore: store.NewMemStore()}
	e := New(Config{Capacity: 64}, fs, store.NotFoundPrices{})
	require.True(t, e.PutSeat(model.Seat{
		EventID:    "EV",
		SeatID:     "S1",
		PriceCents: 100,
		Status:     model.StatusAvailable,
	}))
	return e, fs
}

func TestConfirmIdempotencyLookupFailure(t *testing.T) {
	e, fs := newFaultEngine(t)
	ctx := context.Background()

	h := e.PlaceHold("U1", "EV", "S1")
	require.Equal(t, CodeOK, h.Code)

	fs.failFindByToken = true
	assert.Equal(t, CodeDBError, e.Confirm(ctx, h.Token, 100).Code)

	// The hold is untouched and confirmable once the store recovers.
	fs.failFindByToken = false
	assert.Equal(t, CodeOK, e.Confirm(ctx, h.Token, 100).Code)
}

func TestConfirmBeginFailureLeavesHold(t *testing.T) {
	e, fs := newFaultEngine(t)
	ctx := context.Background()

	h := e.PlaceHold("U1", "EV", "S1")
	require.Equal(t, CodeOK, h.Code)

	fs.failBegin = true
	assert.Equal(t, CodeDBError, e.Confirm(ctx, h.Token, 100).Code)

	s, ok := e.Map().Get("EV", "S1")
	require.True(t, ok)
	assert.Equal(t, model.StatusHeld, s.Status)
}

func TestConfirmCommitFailureNeverShowsSold(t *testing.T) {
	e, fs := newFaultEngine(t)
	ctx := context.Background()

	h := e.PlaceHold("U1", "EV", "S1")
	require.Equal(t, CodeOK, h.Code)

	fs.failCommit = true
	assert.Equal(t, CodeDBError, e.Confirm(ctx, h.Token, 100).Code)

	// Durable write failed, so the map may not show SOLD and no order
	// may be resolvable by the token.
	s, ok := e.Map().Get("EV", "S1")
	require.True(t, ok)
	assert.Equal(t, model.StatusHeld, s.Status)
	_, _, err := fs.MemStore.OrderFindByToken(ctx, h.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)

	fs.failCommit = false
	c := e.Confirm(ctx, h.Token, 100)
	require.Equal(t, CodeOK, c.Code)
	s, _ = e.Map().Get("EV", "S1")
	assert.Equal(t, model.StatusSold, s.Status)
}

func TestConfirmCreateFailure(t *testing.T) {
	e, fs := newFaultEngine(t)
	ctx := context.Background()

	h := e.PlaceHold("U1", "EV", "S1")
	require.Equal(t, CodeOK, h.Code)

	fs.failCreate = true
	assert.Equal(t, CodeDBError, e.Confirm(ctx, h.Token, 100).Code)
	s, _ := e.Map().Get("EV", "S1")
	assert.Equal(t, model.StatusHeld, s.Status)
}

func TestRefundStoreFailures(t *testing.T) {
	e, fs := newFaultEngine(t)
	ctx := context.Background()

	h := e.PlaceHold("U1", "EV", "S1")
	require.Equal(t, CodeOK, h.Code)
	c := e.Confirm(ctx, h.Token, 100)
	require.Equal(t, CodeOK, c.Code)

	fs.failFindByID = true
	assert.Equal(t, CodeDBError, e.Refund(ctx, "U1", c.OrderID))
	fs.failFindByID = false

	fs.failRefund = true
	assert.Equal(t, CodeDBError, e.Refund(ctx, "U1", c.OrderID))
	// The failed refund must not flip the seat.
	s, _ := e.Map().Get("EV", "S1")
	assert.Equal(t, model.StatusSold, s.Status)
	fs.failRefund = false

	assert.Equal(t, CodeOK, e.Refund(ctx, "U1", c.OrderID))
	s, _ = e.Map().Get("EV", "S1")
	assert.Equal(t, model.StatusAvailable, s.Status)
}

func TestConfirmPriceSourceFailure(t *testing.T) {
	fs := &faultStore{MemStore: store.NewMemStore()}
	e := New(Config{Capacity: 64}, fs, failingPrices{})
	require.True(t, e.PutSeat(model.Seat{
		EventID: "EV", SeatID: "S1", PriceCents: 100, Status: model.StatusAvailable,
	}))

	h := e.PlaceHold("U1", "EV", "S1")
	require.Equal(t, CodeOK, h.Code)
	assert.Equal(t, CodeDBError, e.Confirm(context.Background(), h.Token, 100).Code)
}

type failingPrices struct{}

func (failingPrices) AuthoritativePrice(ctx context.Context, eventID, seatID string) (int32, error) {
	return 0, store.ErrUnavailable
}
