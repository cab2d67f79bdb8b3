package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-reservation/internal/model"
	"github.com/iliyamo/ticket-reservation/internal/utils"
)

// TokenHandler mints development access tokens.  The route is only
// registered outside production; real deployments bring tokens signed by
// the identity service with the shared secret.
type TokenHandler struct {
	Secret string
	TTLMin int
}

// Issue handles POST /v1/auth/token.
func (h *TokenHandler) Issue(c echo.Context) error {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil || !model.ValidID(body.UserID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	tok, err := utils.NewAccessToken(h.Secret, body.UserID, h.TTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token mint failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}
