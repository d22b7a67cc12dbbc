// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelo/internal/http/middleware"
	"parcelo/internal/modules/confirmation"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/modules/tracking"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDeliveryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, delivery.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, delivery.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, delivery.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, delivery.ErrIllegalTransition), errors.Is(err, delivery.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeCodeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, confirmation.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, confirmation.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, confirmation.ErrExpired), errors.Is(err, confirmation.ErrAlreadyConsumed):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, confirmation.ErrMismatch):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeDeliveryError(c, err)
	}
}

func writeTrackingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tracking.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, tracking.ErrNoSample):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeDeliveryError(c, err)
	}
}

// callerRole maps the token's role claim onto a delivery role. Tokens
// without a role claim act as plain requesters.
func callerRole(c *gin.Context) string {
	role := middleware.CallerRole(c)
	if role == "" {
		return delivery.RoleRequester
	}
	return role
}
