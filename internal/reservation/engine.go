// Package reservation implements the seat reservation engine: the per-seat
// state machine (AVAILABLE → HELD → SOLD, and back to AVAILABLE on refund;
// a seat loaded as REFUNDED is holdable like AVAILABLE), hold tokens, lazy
// expiration and the ordering of in-memory versus durable mutations.
//
// Every transition of a seat happens under that seat's map lock, so per-seat
// histories are totally ordered.  Confirm and Refund commit durably before
// touching in-memory state: a crash between the two leaves the map stale but
// recoverable by rehydrating from the store, and a failed durable write can
// never leave the map showing SOLD.
package reservation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"

	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/seatmap"
	"github.com/iliyamo/ticket-reservation/internal/store"
	"github.com/iliyamo/ticket-reservation/internal/utils"
)

const (
	// DefaultHoldLengthSecs is the lifetime of a fresh hold.
	DefaultHoldLengthSecs = 300
	// DefaultTokenLen is the entropy, in bytes, of a hold token.
	DefaultTokenLen = 32
)

// Config carries the tunables of the engine.  Zero values fall back to
// the defaults above.
type Config struct {
	Capacity       int // seat map bucket count
	HoldLengthSecs int64
	TokenLen       int
}

// Engine mediates concurrent holds and purchases over the in-memory seat
// map, recording purchases and refunds through the order store.
type Engine struct {
	seats    *seatmap.Map
	orders   store.OrderStore
	prices   store.PriceSource
	holdLen  atomic.Int64 // seconds; written rarely (tests), read on every hold
	tokenLen int
}

// New constructs an engine over a fresh seat map.  The order store and
// price source are required collaborators.
func New(cfg Config, orders store.OrderStore, prices store.PriceSource) *Engine {
	if orders == nil || prices == nil {
		panic("nil collaborator passed to reservation.New")
	}
	if cfg.HoldLengthSecs <= 0 {
		cfg.HoldLengthSecs = DefaultHoldLengthSecs
	}
	if cfg.TokenLen <= 0 || cfg.TokenLen > model.MaxTokenLen {
		cfg.TokenLen = DefaultTokenLen
	}
	e := &Engine{
		seats:    seatmap.New(cfg.Capacity),
		orders:   orders,
		prices:   prices,
		tokenLen: cfg.TokenLen,
	}
	e.holdLen.Store(cfg.HoldLengthSecs)
	return e
}

// Map exposes the seat map for rehydration and tests.
func (e *Engine) Map() *seatmap.Map { return e.seats }

// SetHoldLength adjusts the hold lifetime in seconds.  Negative values
// clamp to zero.  Intended for admin tuning and test seeding.
func (e *Engine) SetHoldLength(secs int64) {
	if secs < 0 {
		secs = 0
	}
	e.holdLen.Store(secs)
}

// HoldLength reports the current hold lifetime in seconds.
func (e *Engine) HoldLength() int64 { return e.holdLen.Load() }

// PutSeat inserts or replaces a seat record.  The engine never creates
// seats on its own; first-time seeding (rehydration, pre-sale loads)
// inserts directly.  Reseeding an existing seat can arrive over the
// admin API while traffic is live, so the overwrite path takes the
// seat's entry lock to serialize against in-flight hold and confirm
// writers.
func (e *Engine) PutSeat(seat model.Seat) bool {
	if !model.ValidID(seat.EventID) || !model.ValidID(seat.SeatID) || seat.PriceCents < 0 {
		return false
	}
	if e.seats.Lock(seat.EventID, seat.SeatID) {
		e.seats.Put(seat)
		e.seats.Unlock(seat.EventID, seat.SeatID)
		return true
	}
	e.seats.Put(seat)
	return true
}

func nowUnix() int64 { return time.Now().Unix() }

// mintToken draws a fresh random token, regenerating on the vanishingly
// improbable collision with a live hold.  Called before the seat lock is
// taken: FindByToken acquires entry locks during its scan.
func (e *Engine) mintToken() ([]byte, error) {
	for {
		tok, err := utils.RandomToken(e.tokenLen)
		if err != nil {
			return nil, err
		}
		if _, exists := e.seats.FindByToken(tok); !exists {
			return tok, nil
		}
	}
}

// PlaceHold attempts to reserve the seat for userID for the configured
// hold length.  An active hold by the same user is answered with the
// existing token; a hold by another user or a sold seat is rejected.
// Expired holds are replaced in place.
func (e *Engine) PlaceHold(userID, eventID, seatID string) HoldResult {
	if !model.ValidID(userID) || !model.ValidID(eventID) || !model.ValidID(seatID) {
		return HoldResult{Code: CodeNotFound}
	}

	// Mint up front, outside the seat lock.  Early-exit paths discard the
	// token; random bytes are cheap next to a lock held through a scan.
	tok, err := e.mintToken()
	if err != nil {
		return HoldResult{Code: CodeInternalErr}
	}

	if !e.seats.Lock(eventID, seatID) {
		return HoldResult{Code: CodeNotFound}
	}
	defer e.seats.Unlock(eventID, seatID)

	s, ok := e.seats.Get(eventID, seatID)
	if !ok {
		return HoldResult{Code: CodeNotFound}
	}

	now := nowUnix()
	switch {
	case s.Status == model.StatusSold:
		return HoldResult{Code: CodeAlreadySold}
	case s.Status == model.StatusHeld && s.HoldExpiresUnix > now:
		if s.HolderUserID == userID {
			return HoldResult{
				Code:        CodeHoldExistsSameUser,
				PriceCents:  s.PriceCents,
				ExpiresUnix: s.HoldExpiresUnix,
				Token:       append([]byte(nil), s.HoldToken...),
			}
		}
		return HoldResult{Code: CodeHeldByOther}
	}

	// AVAILABLE, REFUNDED, or an expired hold: take the seat.
	s.Status = model.StatusHeld
	s.HolderUserID = userID
	s.HoldExpiresUnix = now + e.holdLen.Load()
	s.HoldToken = tok
	e.seats.Put(s)

	return HoldResult{
		Code:        CodeOK,
		PriceCents:  s.PriceCents,
		ExpiresUnix: s.HoldExpiresUnix,
		Token:       append([]byte(nil), tok...),
	}
}

// Confirm turns a live hold into a purchase.  The order row and the sold
// marker are committed in one store transaction before the in-memory seat
// flips to SOLD.  Confirming an already-confirmed token is idempotent and
// returns the original order.
func (e *Engine) Confirm(ctx context.Context, token []byte, amountPaidCents int32) ConfirmResult {
	if len(token) == 0 || len(token) > model.MaxTokenLen {
		return ConfirmResult{Code: CodeInvalidToken}
	}

	// Idempotency: a token that already bought an order answers with it.
	orderID, prevPrice, err := e.orders.OrderFindByToken(ctx, token)
	switch {
	case err == nil:
		return ConfirmResult{Code: CodeOK, OrderID: orderID, PriceCents: prevPrice}
	case errors.Is(err, store.ErrNotFound):
		// fresh confirm, continue
	default:
		return ConfirmResult{Code: CodeDBError}
	}

	// Resolve the seat without holding its lock, then lock and re-read.
	// The scan releases each entry before returning its copy, so the seat
	// can change before we acquire the lock; the revalidation below
	// rejects exactly that.
	cand, ok := e.seats.FindByToken(token)
	if !ok {
		return ConfirmResult{Code: CodeInvalidToken}
	}
	if !e.seats.Lock(cand.EventID, cand.SeatID) {
		return ConfirmResult{Code: CodeNotFound}
	}
	defer e.seats.Unlock(cand.EventID, cand.SeatID)

	s, ok := e.seats.Get(cand.EventID, cand.SeatID)
	if !ok {
		return ConfirmResult{Code: CodeNotFound}
	}
	if s.Status != model.StatusHeld || !utils.TokenEqual(s.HoldToken, token) {
		return ConfirmResult{Code: CodeInvalidToken}
	}
	if now := nowUnix(); s.HoldExpiresUnix > 0 && now >= s.HoldExpiresUnix {
		s.Status = model.StatusAvailable
		s.ClearHold()
		e.seats.Put(s)
		return ConfirmResult{Code: CodeHoldExpired}
	}

	// The store's price wins whenever it answers OK with a positive value;
	// NOT_FOUND, or OK with a zero or negative price, keeps the cached price.
	price := s.PriceCents
	switch dbPrice, err := e.prices.AuthoritativePrice(ctx, s.EventID, s.SeatID); {
	case err == nil && dbPrice > 0:
		price = dbPrice
	case err == nil || errors.Is(err, store.ErrNotFound):
		// keep cached price
	default:
		return ConfirmResult{Code: CodeDBError}
	}

	if amountPaidCents != price {
		return ConfirmResult{Code: CodeInternalErr} // payment amount mismatch
	}

	txn, err := e.orders.Begin(ctx)
	if err != nil {
		return ConfirmResult{Code: CodeDBError}
	}
	newOrderID, err := e.orders.OrderCreate(ctx, txn, s.HolderUserID, s.EventID, s.SeatID, price, token)
	if err == nil {
		err = e.orders.SeatMarkSold(ctx, txn, s.EventID, s.SeatID, newOrderID)
	}
	if err == nil {
		err = txn.Commit()
	}
	if err != nil {
		txn.Rollback()
		if errors.Is(err, store.ErrUnavailable) {
			return ConfirmResult{Code: CodeDBError}
		}
		return ConfirmResult{Code: CodeInternalErr}
	}

	// Durable commit succeeded; only now does the map show SOLD.
	s.Status = model.StatusSold
	s.LastOrderID = newOrderID
	s.ClearHold()
	e.seats.Put(s)

	return ConfirmResult{Code: CodeOK, OrderID: newOrderID, PriceCents: price}
}

// CancelHold releases an active hold.  Only the holder may cancel.
func (e *Engine) CancelHold(userID, eventID, seatID string) Code {
	if !model.ValidID(userID) || !model.ValidID(eventID) || !model.ValidID(seatID) {
		return CodeNotFound
	}
	if !e.seats.Lock(eventID, seatID) {
		return CodeNotFound
	}
	defer e.seats.Unlock(eventID, seatID)

	s, ok := e.seats.Get(eventID, seatID)
	if !ok {
		return CodeNotFound
	}
	if s.Status != model.StatusHeld {
		if s.Status == model.StatusSold {
			return CodeAlreadySold
		}
		return CodeNotFound
	}
	if s.HolderUserID != userID {
		return CodeHeldByOther
	}

	s.Status = model.StatusAvailable
	s.ClearHold()
	e.seats.Put(s)
	return CodeOK
}

// SeatGet returns the public view of a seat, lazily expiring a hold whose
// deadline has passed.  The repaired state is written back before the
// view is taken, so the transition persists.
func (e *Engine) SeatGet(eventID, seatID string) (model.SeatView, bool) {
	if !model.ValidID(eventID) || !model.ValidID(seatID) {
		return model.SeatView{}, false
	}
	if !e.seats.Lock(eventID, seatID) {
		return model.SeatView{}, false
	}
	defer e.seats.Unlock(eventID, seatID)

	s, ok := e.seats.Get(eventID, seatID)
	if !ok {
		return model.SeatView{}, false
	}
	if s.Status == model.StatusHeld && s.HoldExpiresUnix > 0 && nowUnix() >= s.HoldExpiresUnix {
		s.Status = model.StatusAvailable
		s.ClearHold()
		e.seats.Put(s)
	}
	return s.View(), true
}

// Refund reverses a purchase for the order's owner.  The refund row
// commits durably first; the in-memory flip back to AVAILABLE is
// best-effort and non-fatal, since the durable record already holds.
func (e *Engine) Refund(ctx context.Context, userID, orderID string) Code {
	if !model.ValidID(userID) || !model.ValidID(orderID) {
		return CodeNotFound
	}

	o, err := e.orders.OrderFindByID(ctx, orderID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	case err != nil:
		return CodeDBError
	}
	// Do not leak order existence to non-owners.
	if o.UserID != userID {
		return CodeNotFound
	}

	txn, err := e.orders.Begin(ctx)
	if err != nil {
		return CodeDBError
	}
	err = e.orders.RefundCreate(ctx, txn, userID, orderID, o.PriceCents)
	if err == nil {
		err = txn.Commit()
	}
	if err != nil {
		txn.Rollback()
		if errors.Is(err, store.ErrUnavailable) {
			return CodeDBError
		}
		return CodeInternalErr
	}

	// Best-effort in-memory fixup; the seat may have been removed or
	// already resold, in which case there is nothing to repair.
	if e.seats.Lock(o.EventID, o.SeatID) {
		if s, ok := e.seats.Get(o.EventID, o.SeatID); ok && s.Status == model.StatusSold && s.LastOrderID == orderID {
			s.Status = model.StatusAvailable
			s.ClearHold()
			e.seats.Put(s)
		}
		e.seats.Unlock(o.EventID, o.SeatID)
	}
	return CodeOK
}
