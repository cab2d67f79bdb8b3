// Package store defines the durable collaborator contracts of the
// reservation engine: the transactional order store and the authoritative
// price source.  The engine depends only on these interfaces; the MySQL
// implementation backs production and the in-memory implementation backs
// tests and development.
package store

import (
	"context"
	"errors"

	"github.com/iliyamo/ticket-reservation/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.  Callers
// treat unknown entities and invalid inputs identically.
var ErrNotFound = errors.New("store: not found")

// ErrUnavailable is returned when the backing store failed (connection,
// constraint, commit).  The engine surfaces it verbatim as a DB error.
var ErrUnavailable = errors.New("store: unavailable")

// Txn is a store transaction.  Commit invalidates the handle; Rollback is
// safe to call after a failed or successful Commit and on a nil path.
type Txn interface {
	Commit() error
	Rollback()
}

// OrderStore is the durable order ledger.  Implementations must be safe
// for concurrent use; the engine calls it while holding per-seat locks.
type OrderStore interface {
	// Begin opens a transaction for the write operations below.
	Begin(ctx context.Context) (Txn, error)

	// OrderFindByToken resolves an order by the hold token it was
	// confirmed with.  Used for confirm idempotency.
	OrderFindByToken(ctx context.Context, token []byte) (orderID string, priceCents int32, err error)

	// OrderFindByID returns the full order row.
	OrderFindByID(ctx context.Context, orderID string) (model.Order, error)

	// OrderCreate inserts a new order row inside txn and mints its id.
	OrderCreate(ctx context.Context, txn Txn, userID, eventID, seatID string, priceCents int32, token []byte) (orderID string, err error)

	// SeatMarkSold records the seat as sold, linked to the order, inside txn.
	SeatMarkSold(ctx context.Context, txn Txn, eventID, seatID, orderID string) error

	// RefundCreate records a refund for the order inside txn.
	RefundCreate(ctx context.Context, txn Txn, userID, orderID string, amountCents int32) error
}

// PriceSource answers the authoritative price of a seat.  ErrNotFound
// tells the engine to fall back to the cached in-memory price.
type PriceSource interface {
	AuthoritativePrice(ctx context.Context, eventID, seatID string) (int32, error)
}

// SeatSeeder enumerates the seats of record for startup rehydration of
// the in-memory map.
type SeatSeeder interface {
	Seats(ctx context.Context) ([]model.Seat, error)
}
