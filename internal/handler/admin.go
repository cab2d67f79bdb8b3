package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/reservation"
	"github.com/iliyamo/ticket-reservation/internal/utils"
)

// AdminHandler exposes operational endpoints: seat seeding before the
// event goes on sale and hold-length tuning.  Requests must present the
// plain admin key in X-Admin-Key; it is verified against the configured
// bcrypt hash.
type AdminHandler struct {
	Engine       *reservation.Engine
	AdminKeyHash string
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(engine *reservation.Engine, adminKeyHash string) *AdminHandler {
	if engine == nil {
		panic("nil engine passed to NewAdminHandler")
	}
	return &AdminHandler{Engine: engine, AdminKeyHash: adminKeyHash}
}

func (h *AdminHandler) authorized(c echo.Context) bool {
	key := c.Request().Header.Get("X-Admin-Key")
	return key != "" && utils.VerifyAdminKey(h.AdminKeyHash, key)
}

// SeedSeat handles POST /v1/admin/seats.  Seats are seeded AVAILABLE;
// re-seeding an existing seat overwrites its record in place.
func (h *AdminHandler) SeedSeat(c echo.Context) error {
	if !h.authorized(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var body struct {
		EventID    string `json:"event_id"`
		SeatID     string `json:"seat_id"`
		PriceCents int32  `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ok := h.Engine.PutSeat(model.Seat{
		EventID:    body.EventID,
		SeatID:     body.SeatID,
		PriceCents: body.PriceCents,
		Status:     model.StatusAvailable,
	})
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"event_id": body.EventID,
		"seat_id":  body.SeatID,
	})
}

// SetHoldLength handles PUT /v1/admin/hold-length.
func (h *AdminHandler) SetHoldLength(c echo.Context) error {
	if !h.authorized(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var body struct {
		Seconds int64 `json:"seconds"`
	}
	if err := c.Bind(&body); err != nil || body.Seconds < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold length"})
	}
	h.Engine.SetHoldLength(body.Seconds)
	return c.JSON(http.StatusOK, echo.Map{"hold_length_secs": h.Engine.HoldLength()})
}
