package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/utils"
)

// MemStore is the in-memory order store used by tests and single-node
// development.  All state is guarded by a single mutex.  Writes made
// through a transaction are staged and become visible atomically at
// Commit, so a rolled-back order is never observable.
type MemStore struct {
	mu      sync.Mutex
	orders  []model.Order
	refunds []refundRow
	sold    map[string]string // event|seat -> order id
	seats   []model.Seat      // seed rows served to the rehydrator
	seq     uint64
}

type refundRow struct {
	UserID      string
	OrderID     string
	AmountCents int32
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sold: make(map[string]string)}
}

func seatKey(eventID, seatID string) string {
	return eventID + "|" + seatID
}

// memTxn stages writes until Commit.
type memTxn struct {
	st      *MemStore
	orders  []model.Order
	sold    map[string]string
	refunds []refundRow
	done    bool
}

// Begin opens a staged transaction.
func (s *MemStore) Begin(ctx context.Context) (Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}
	return &memTxn{st: s, sold: make(map[string]string)}, nil
}

// Commit publishes the staged rows.  The handle is invalid afterwards.
func (t *memTxn) Commit() error {
	if t.done {
		return ErrUnavailable
	}
	t.done = true
	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	t.st.orders = append(t.st.orders, t.orders...)
	for k, v := range t.sold {
		t.st.sold[k] = v
	}
	t.st.refunds = append(t.st.refunds, t.refunds...)
	return nil
}

// Rollback discards the staged rows.  Safe to call after Commit.
func (t *memTxn) Rollback() {
	t.done = true
	t.orders = nil
	t.sold = nil
	t.refunds = nil
}

// OrderFindByToken scans committed orders for a matching hold token.
func (s *MemStore) OrderFindByToken(ctx context.Context, token []byte) (string, int32, error) {
	if len(token) == 0 {
		return "", 0, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if utils.TokenEqual(s.orders[i].HoldToken, token) {
			return s.orders[i].OrderID, s.orders[i].PriceCents, nil
		}
	}
	return "", 0, ErrNotFound
}

// OrderFindByID returns the committed order with the given id.
func (s *MemStore) OrderFindByID(ctx context.Context, orderID string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].OrderID == orderID {
			return s.orders[i], nil
		}
	}
	return model.Order{}, ErrNotFound
}

// OrderCreate stages a new order row and mints its id.  The id becomes
// resolvable only after the transaction commits.
func (s *MemStore) OrderCreate(ctx context.Context, txn Txn, userID, eventID, seatID string, priceCents int32, token []byte) (string, error) {
	t, ok := txn.(*memTxn)
	if !ok || t.done {
		return "", ErrUnavailable
	}
	if userID == "" || eventID == "" || seatID == "" || len(token) == 0 {
		return "", fmt.Errorf("order create: missing field")
	}
	s.mu.Lock()
	s.seq++
	orderID := fmt.Sprintf("ORD-%d", s.seq)
	s.mu.Unlock()

	tok := make([]byte, len(token))
	copy(tok, token)
	t.orders = append(t.orders, model.Order{
		OrderID:    orderID,
		UserID:     userID,
		EventID:    eventID,
		SeatID:     seatID,
		PriceCents: priceCents,
		HoldToken:  tok,
	})
	return orderID, nil
}

// SeatMarkSold stages the sold marker for the seat.
func (s *MemStore) SeatMarkSold(ctx context.Context, txn Txn, eventID, seatID, orderID string) error {
	t, ok := txn.(*memTxn)
	if !ok || t.done {
		return ErrUnavailable
	}
	t.sold[seatKey(eventID, seatID)] = orderID
	return nil
}

// RefundCreate stages a refund row for the order.
func (s *MemStore) RefundCreate(ctx context.Context, txn Txn, userID, orderID string, amountCents int32) error {
	t, ok := txn.(*memTxn)
	if !ok || t.done {
		return ErrUnavailable
	}
	t.refunds = append(t.refunds, refundRow{UserID: userID, OrderID: orderID, AmountCents: amountCents})
	return nil
}

// SoldOrderID reports the order a seat was sold under, if any.
func (s *MemStore) SoldOrderID(eventID, seatID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sold[seatKey(eventID, seatID)]
	return id, ok
}

// RefundCount reports how many refunds were committed for the order.
func (s *MemStore) RefundCount(orderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.refunds {
		if s.refunds[i].OrderID == orderID {
			n++
		}
	}
	return n
}

// SeedSeats installs the seat rows served to the rehydrator.
func (s *MemStore) SeedSeats(seats []model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats = append([]model.Seat(nil), seats...)
}

// Seats implements SeatSeeder.
func (s *MemStore) Seats(ctx context.Context) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Seat(nil), s.seats...), nil
}

// StaticPrices is a fixed authoritative price table keyed by seat.
type StaticPrices struct {
	mu     sync.RWMutex
	prices map[string]int32
}

// NewStaticPrices builds a price source from the given table.
func NewStaticPrices(prices map[string]int32) *StaticPrices {
	cp := make(map[string]int32, len(prices))
	for k, v := range prices {
		cp[k] = v
	}
	return &StaticPrices{prices: cp}
}

// Set installs or updates the price of one seat.
func (p *StaticPrices) Set(eventID, seatID string, priceCents int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[seatKey(eventID, seatID)] = priceCents
}

// AuthoritativePrice implements PriceSource.
func (p *StaticPrices) AuthoritativePrice(ctx context.Context, eventID, seatID string) (int32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.prices[seatKey(eventID, seatID)]; ok {
		return v, nil
	}
	return 0, ErrNotFound
}

// NotFoundPrices answers ErrNotFound for every seat, forcing the engine
// onto the cached in-memory price.  Mirrors the development stub.
type NotFoundPrices struct{}

// AuthoritativePrice implements PriceSource.
func (NotFoundPrices) AuthoritativePrice(ctx context.Context, eventID, seatID string) (int32, error) {
	return 0, ErrNotFound
}
