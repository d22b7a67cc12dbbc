// README: Tracking handlers: carrier location reports and the snapshot view.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parcelo/internal/gateway"
	"parcelo/internal/http/middleware"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/modules/tracking"
	"parcelo/internal/types"
)

type TrackingHandler struct {
	gateway *gateway.Gateway
}

func NewTrackingHandler(gw *gateway.Gateway) *TrackingHandler {
	return &TrackingHandler{gateway: gw}
}

type reportLocationReq struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	AccuracyM  *float64 `json:"accuracy_m"`
	HeadingDeg *float64 `json:"heading"`
	SpeedKmh   *float64 `json:"speed_kmh"`
}

func (h *TrackingHandler) ReportLocation(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing delivery id")
		return
	}
	if callerRole(c) != delivery.RoleCarrier {
		writeError(c, http.StatusForbidden, "forbidden: carrier role required")
		return
	}
	var req reportLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sample, eta, err := h.gateway.ReportLocation(c.Request.Context(), tracking.ReportCommand{
		DeliveryID: types.ID(id),
		CarrierID:  types.ID(middleware.CallerUID(c)),
		Position:   types.Point{Lat: req.Lat, Lng: req.Lng},
		AccuracyM:  req.AccuracyM,
		HeadingDeg: req.HeadingDeg,
		SpeedKmh:   req.SpeedKmh,
	})
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	resp := map[string]any{"captured_at": sample.CapturedAt}
	if eta != nil {
		resp["eta"] = etaView(eta)
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *TrackingHandler) Snapshot(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing delivery id")
		return
	}
	snap, err := h.gateway.TrackingSnapshot(
		c.Request.Context(),
		types.ID(id),
		callerRole(c),
		types.ID(middleware.CallerUID(c)),
	)
	if err != nil {
		writeTrackingError(c, err)
		return
	}

	resp := map[string]any{
		"delivery_id": id,
		"status":      snap.Status,
		"progress":    snap.Progress,
		"history":     historyView(snap.History),
	}
	if snap.CurrentPosition != nil {
		resp["position"] = map[string]any{
			"lat":         snap.CurrentPosition.Position.Lat,
			"lng":         snap.CurrentPosition.Position.Lng,
			"captured_at": snap.CurrentPosition.CapturedAt,
		}
	}
	if snap.EstimatedAt != nil {
		resp["eta"] = etaView(snap.EstimatedAt)
	}
	writeJSON(c, http.StatusOK, resp)
}

func etaView(eta *tracking.ETA) map[string]any {
	return map[string]any{
		"arrival_at": eta.ArrivalAt,
		"duration_s": int(eta.Duration / time.Second),
		"distance_m": eta.DistanceM,
		"polyline":   eta.Polyline,
		"degraded":   eta.Degraded,
	}
}

func historyView(entries []delivery.HistoryEntry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"from":       e.FromStatus,
			"to":         e.ToStatus,
			"actor_role": e.ActorRole,
			"message":    e.Message,
			"created_at": e.CreatedAt,
		})
	}
	return out
}
