// README: Confirmation code handlers: issue and redeem.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelo/internal/gateway"
	"parcelo/internal/http/middleware"
	"parcelo/internal/modules/confirmation"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/types"
)

type ConfirmationHandler struct {
	gateway *gateway.Gateway
}

func NewConfirmationHandler(gw *gateway.Gateway) *ConfirmationHandler {
	return &ConfirmationHandler{gateway: gw}
}

// IssueCode generates or rotates the delivery's confirmation code. The code
// value appears only in this response; it is never pushed over a room.
func (h *ConfirmationHandler) IssueCode(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing delivery id")
		return
	}
	issued, err := h.gateway.IssueCode(
		c.Request.Context(),
		types.ID(id),
		callerRole(c),
		types.ID(middleware.CallerUID(c)),
	)
	if err != nil {
		writeCodeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{
		"code":       issued.Value,
		"expires_at": issued.ExpiresAt,
	})
}

type redeemCodeReq struct {
	Code  string   `json:"code"`
	Notes string   `json:"notes"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}

func (h *ConfirmationHandler) RedeemCode(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing delivery id")
		return
	}
	var req redeemCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Code == "" {
		writeError(c, http.StatusBadRequest, "missing code")
		return
	}
	var loc *types.Point
	if req.Lat != nil && req.Lng != nil {
		loc = &types.Point{Lat: *req.Lat, Lng: *req.Lng}
	}
	d, err := h.gateway.RedeemCode(c.Request.Context(), confirmation.RedeemCommand{
		DeliveryID: types.ID(id),
		Value:      req.Code,
		ActorRole:  callerRole(c),
		Notes:      req.Notes,
		Location:   loc,
	}, types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeCodeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"delivery_id": d.ID,
		"status":      d.Status,
		"progress":    delivery.Progress(d.Status),
	})
}
