package handler

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticket-reservation/internal/middleware"
	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/queue"
	"github.com/iliyamo/ticket-reservation/internal/reservation"
)

// ReservationHandler exposes the reservation engine over HTTP.  It
// translates engine result codes to HTTP statuses and owns the
// best-effort side channels: the Redis hold mirror and the order event
// queue.  Neither side channel is consulted for correctness; a nil Redis
// client disables the mirror and queue failures are logged and dropped.
type ReservationHandler struct {
	Engine *reservation.Engine

	// RedisClient mirrors live holds under hold:<event>:<seat> keys with
	// a TTL matching the hold lifetime.  Optional.
	RedisClient *redis.Client

	// PublishEvents enables order.confirmed / order.refunded publishing.
	PublishEvents bool
}

// NewReservationHandler constructs a handler around the engine.
func NewReservationHandler(engine *reservation.Engine) *ReservationHandler {
	if engine == nil {
		panic("nil engine passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: engine}
}

func holdKey(eventID, seatID string) string {
	return fmt.Sprintf("hold:%s:%s", eventID, seatID)
}

// codeStatus maps engine result codes onto HTTP statuses.
func codeStatus(code reservation.Code) int {
	switch code {
	case reservation.CodeOK:
		return http.StatusOK
	case reservation.CodeNotFound:
		return http.StatusNotFound
	case reservation.CodeAlreadySold, reservation.CodeHeldByOther:
		return http.StatusConflict
	case reservation.CodeHoldExistsSameUser:
		return http.StatusOK
	case reservation.CodeInvalidToken:
		return http.StatusUnprocessableEntity
	case reservation.CodeHoldExpired:
		return http.StatusGone
	case reservation.CodeDBError:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// SeatGet handles GET /v1/events/:event_id/seats/:seat_id.  Reading a
// seat lazily expires a stale hold, so the returned view is current.
func (h *ReservationHandler) SeatGet(c echo.Context) error {
	view, ok := h.Engine.SeatGet(c.Param("event_id"), c.Param("seat_id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	}
	resp := echo.Map{
		"event_id":    view.EventID,
		"seat_id":     view.SeatID,
		"price_cents": view.PriceCents,
		"status":      view.Status.String(),
	}
	if view.Status == model.StatusHeld {
		resp["holder_user_id"] = view.HolderUserID
		resp["hold_expires_unix"] = view.HoldExpiresUnix
	}
	return c.JSON(http.StatusOK, resp)
}

// Hold handles POST /v1/holds.  The authenticated user requests a
// time-limited hold on one seat; an active hold by the same user answers
// with the existing token.
func (h *ReservationHandler) Hold(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		EventID string `json:"event_id"`
		SeatID  string `json:"seat_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res := h.Engine.PlaceHold(userID, body.EventID, body.SeatID)
	switch res.Code {
	case reservation.CodeOK, reservation.CodeHoldExistsSameUser:
		h.mirrorHold(c.Request().Context(), body.EventID, body.SeatID, userID, res.ExpiresUnix)
		status := http.StatusCreated
		if res.Code == reservation.CodeHoldExistsSameUser {
			status = http.StatusOK
		}
		return c.JSON(status, echo.Map{
			"code":         res.Code.String(),
			"hold_token":   hex.EncodeToString(res.Token),
			"expires_unix": res.ExpiresUnix,
			"price_cents":  res.PriceCents,
		})
	default:
		return c.JSON(codeStatus(res.Code), echo.Map{"error": res.Code.String()})
	}
}

// Release handles DELETE /v1/holds.  Only the holder may cancel.
func (h *ReservationHandler) Release(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		EventID string `json:"event_id"`
		SeatID  string `json:"seat_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	code := h.Engine.CancelHold(userID, body.EventID, body.SeatID)
	if code != reservation.CodeOK {
		return c.JSON(codeStatus(code), echo.Map{"error": code.String()})
	}
	h.dropMirror(c.Request().Context(), body.EventID, body.SeatID)
	return c.JSON(http.StatusOK, echo.Map{"code": "OK"})
}

// Confirm handles POST /v1/orders.  The hold token arrives hex-encoded;
// the charged amount must equal the authoritative price.  Confirming the
// same token again returns the original order.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	var body struct {
		HoldToken   string `json:"hold_token"`
		AmountCents int32  `json:"amount_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	token, err := hex.DecodeString(body.HoldToken)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "INVALID_TOKEN"})
	}

	// Resolve the seat before confirm so the mirror and event carry
	// identity; the engine revalidates under the lock regardless.
	seat, seatKnown := h.Engine.Map().FindByToken(token)

	res := h.Engine.Confirm(c.Request().Context(), token, body.AmountCents)
	if res.Code != reservation.CodeOK {
		return c.JSON(codeStatus(res.Code), echo.Map{"error": res.Code.String()})
	}

	if seatKnown {
		h.dropMirror(c.Request().Context(), seat.EventID, seat.SeatID)
		if h.PublishEvents {
			ev := queue.OrderConfirmedEvent{
				OrderID:     res.OrderID,
				UserID:      seat.HolderUserID,
				EventID:     seat.EventID,
				SeatID:      seat.SeatID,
				PriceCents:  res.PriceCents,
				ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = queue.PublishOrderConfirmed(ctx, ev)
			}()
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":    res.OrderID,
		"price_cents": res.PriceCents,
	})
}

// Refund handles POST /v1/orders/:id/refund for the order's owner.
func (h *ReservationHandler) Refund(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")

	code := h.Engine.Refund(c.Request().Context(), userID, orderID)
	if code != reservation.CodeOK {
		return c.JSON(codeStatus(code), echo.Map{"error": code.String()})
	}

	if h.PublishEvents {
		ev := queue.OrderRefundedEvent{
			OrderID:    orderID,
			UserID:     userID,
			RefundedAt: time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue.PublishOrderRefunded(ctx, ev)
		}()
	}
	return c.JSON(http.StatusOK, echo.Map{"code": "OK"})
}

// mirrorHold caches the hold in Redis with a TTL matching its remaining
// lifetime.  Failures are logged and ignored.
func (h *ReservationHandler) mirrorHold(ctx context.Context, eventID, seatID, userID string, expiresUnix int64) {
	if h.RedisClient == nil {
		return
	}
	ttl := time.Until(time.Unix(expiresUnix, 0))
	if ttl <= 0 {
		return
	}
	val := fmt.Sprintf(`{"user_id":%q,"expires_unix":%d}`, userID, expiresUnix)
	if err := h.RedisClient.Set(ctx, holdKey(eventID, seatID), val, ttl).Err(); err != nil {
		log.Printf("redis: hold mirror set failed: %v", err)
	}
}

func (h *ReservationHandler) dropMirror(ctx context.Context, eventID, seatID string) {
	if h.RedisClient == nil {
		return
	}
	if err := h.RedisClient.Del(ctx, holdKey(eventID, seatID)).Err(); err != nil {
		log.Printf("redis: hold mirror del failed: %v", err)
	}
}
