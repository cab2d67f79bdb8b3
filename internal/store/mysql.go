package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/ticket-reservation/internal/model"
)

// MySQLStore persists orders, refunds and seat state in MySQL.  It is the
// production OrderStore, PriceSource and SeatSeeder.  All timestamps are
// written by the database in UTC.
//
// Expected schema:
//
//	orders      (id BIGINT AUTO_INCREMENT PK, order_id VARCHAR(31) UNIQUE,
//	             user_id VARCHAR(31), event_id VARCHAR(31), seat_id VARCHAR(31),
//	             price_cents INT, hold_token VARBINARY(32), created_at DATETIME)
//	refunds     (id BIGINT AUTO_INCREMENT PK, order_id VARCHAR(31),
//	             user_id VARCHAR(31), amount_cents INT, created_at DATETIME)
//	event_seats (event_id VARCHAR(31), seat_id VARCHAR(31), price_cents INT,
//	             sold_order_id VARCHAR(31) NULL, PRIMARY KEY (event_id, seat_id))
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the provided database.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	if db == nil {
		panic("nil db passed to NewMySQLStore")
	}
	return &MySQLStore{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

type sqlTxn struct {
	tx   *sql.Tx
	done bool
}

func (t *sqlTxn) Commit() error {
	if t.done {
		return ErrUnavailable
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	return nil
}

func (t *sqlTxn) Rollback() {
	if t.done {
		return
	}
	t.done = true
	_ = t.tx.Rollback()
}

// Begin opens a database transaction.
func (s *MySQLStore) Begin(ctx context.Context) (Txn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	return &sqlTxn{tx: tx}, nil
}

func (s *MySQLStore) sqlTx(txn Txn) (*sql.Tx, error) {
	t, ok := txn.(*sqlTxn)
	if !ok || t.done {
		return nil, ErrUnavailable
	}
	return t.tx, nil
}

// OrderFindByToken resolves an order by the hold token it was confirmed
// with.  Used by the engine's idempotency check before any mutation.
func (s *MySQLStore) OrderFindByToken(ctx context.Context, token []byte) (string, int32, error) {
	if len(token) == 0 {
		return "", 0, ErrNotFound
	}
	var orderID string
	var price int32
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, price_cents FROM orders WHERE hold_token = ?`, token,
	).Scan(&orderID, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: order by token: %v", ErrUnavailable, err)
	}
	return orderID, price, nil
}

// OrderFindByID returns the full order row.
func (s *MySQLStore) OrderFindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, event_id, seat_id, price_cents, hold_token
		   FROM orders WHERE order_id = ?`, orderID,
	).Scan(&o.OrderID, &o.UserID, &o.EventID, &o.SeatID, &o.PriceCents, &o.HoldToken)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: order by id: %v", ErrUnavailable, err)
	}
	return o, nil
}

// OrderCreate inserts the order row and mints its public id from the
// auto-increment key, all inside the caller's transaction.
func (s *MySQLStore) OrderCreate(ctx context.Context, txn Txn, userID, eventID, seatID string, priceCents int32, token []byte) (string, error) {
	tx, err := s.sqlTx(txn)
	if err != nil {
		return "", err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (order_id, user_id, event_id, seat_id, price_cents, hold_token, created_at)
		 VALUES ('', ?, ?, ?, ?, ?, UTC_TIMESTAMP())`,
		userID, eventID, seatID, priceCents, token,
	)
	if err != nil {
		return "", fmt.Errorf("%w: order insert: %v", ErrUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: order insert id: %v", ErrUnavailable, err)
	}
	orderID := fmt.Sprintf("ORD-%d", id)
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET order_id = ? WHERE id = ?`, orderID, id,
	); err != nil {
		return "", fmt.Errorf("%w: order id assign: %v", ErrUnavailable, err)
	}
	return orderID, nil
}

// SeatMarkSold links the seat row to the order inside the transaction.
func (s *MySQLStore) SeatMarkSold(ctx context.Context, txn Txn, eventID, seatID, orderID string) error {
	tx, err := s.sqlTx(txn)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE event_seats SET sold_order_id = ? WHERE event_id = ? AND seat_id = ?`,
		orderID, eventID, seatID,
	); err != nil {
		return fmt.Errorf("%w: mark sold: %v", ErrUnavailable, err)
	}
	return nil
}

// RefundCreate records a refund row and clears the seat's sold marker
// inside the transaction.
func (s *MySQLStore) RefundCreate(ctx context.Context, txn Txn, userID, orderID string, amountCents int32) error {
	tx, err := s.sqlTx(txn)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refunds (order_id, user_id, amount_cents, created_at)
		 VALUES (?, ?, ?, UTC_TIMESTAMP())`,
		orderID, userID, amountCents,
	); err != nil {
		return fmt.Errorf("%w: refund insert: %v", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE event_seats SET sold_order_id = NULL WHERE sold_order_id = ?`, orderID,
	); err != nil {
		return fmt.Errorf("%w: refund unmark: %v", ErrUnavailable, err)
	}
	return nil
}

// AuthoritativePrice implements PriceSource from the event_seats pricing
// table.
func (s *MySQLStore) AuthoritativePrice(ctx context.Context, eventID, seatID string) (int32, error) {
	var price int32
	err := s.db.QueryRowContext(ctx,
		`SELECT price_cents FROM event_seats WHERE event_id = ? AND seat_id = ?`,
		eventID, seatID,
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: price: %v", ErrUnavailable, err)
	}
	return price, nil
}

// Seats implements SeatSeeder: every configured seat, SOLD when a live
// order is linked, AVAILABLE otherwise.  Holds are not durable and come
// back empty after a restart.
func (s *MySQLStore) Seats(ctx context.Context) ([]model.Seat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, seat_id, price_cents, sold_order_id FROM event_seats`)
	if err != nil {
		return nil, fmt.Errorf("%w: seats: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var st model.Seat
		var soldOrder sql.NullString
		if err := rows.Scan(&st.EventID, &st.SeatID, &st.PriceCents, &soldOrder); err != nil {
			return nil, fmt.Errorf("%w: seats scan: %v", ErrUnavailable, err)
		}
		if soldOrder.Valid && soldOrder.String != "" {
			st.Status = model.StatusSold
			st.LastOrderID = soldOrder.String
		} else {
			st.Status = model.StatusAvailable
		}
		seats = append(seats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: seats rows: %v", ErrUnavailable, err)
	}
	return seats, nil
}
