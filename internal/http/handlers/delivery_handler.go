// README: Delivery handlers for create, read, accept, and status changes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parcelo/internal/gateway"
	"parcelo/internal/http/middleware"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/types"
)

type DeliveryHandler struct {
	delivery *delivery.Service
	gateway  *gateway.Gateway
}

func NewDeliveryHandler(svc *delivery.Service, gw *gateway.Gateway) *DeliveryHandler {
	return &DeliveryHandler{delivery: svc, gateway: gw}
}

type createDeliveryReq struct {
	PickupLat  float64 `json:"pickup_lat"`
	PickupLng  float64 `json:"pickup_lng"`
	DropoffLat float64 `json:"dropoff_lat"`
	DropoffLng float64 `json:"dropoff_lng"`
}

func (h *DeliveryHandler) Create(c *gin.Context) {
	var req createDeliveryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.delivery.Create(c.Request.Context(), delivery.CreateCommand{
		RequesterID: types.ID(middleware.CallerUID(c)),
		Pickup:      types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		Dropoff:     types.Point{Lat: req.DropoffLat, Lng: req.DropoffLng},
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"delivery_id": id, "status": delivery.StatusPending})
}

func (h *DeliveryHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing delivery id")
		return
	}
	d, err := h.delivery.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, deliveryView(d))
}

func (h *DeliveryHandler) Accept(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing delivery id")
		return
	}
	if callerRole(c) != delivery.RoleCarrier {
		writeError(c, http.StatusForbidden, "forbidden: carrier role required")
		return
	}
	d, err := h.gateway.AcceptDelivery(c.Request.Context(), types.ID(id), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, deliveryView(d))
}

type changeStatusReq struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *DeliveryHandler) ChangeStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing delivery id")
		return
	}
	var req changeStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Status == "" {
		writeError(c, http.StatusBadRequest, "missing status")
		return
	}
	d, err := h.gateway.ChangeStatus(c.Request.Context(), delivery.TransitionCommand{
		DeliveryID: types.ID(id),
		To:         delivery.Status(req.Status),
		ActorRole:  callerRole(c),
		ActorID:    types.ID(middleware.CallerUID(c)),
		Message:    req.Message,
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, deliveryView(d))
}

func deliveryView(d *delivery.Delivery) map[string]any {
	v := map[string]any{
		"delivery_id": d.ID,
		"status":      d.Status,
		"progress":    delivery.Progress(d.Status),
		"pickup":      map[string]float64{"lat": d.Pickup.Lat, "lng": d.Pickup.Lng},
		"dropoff":     map[string]float64{"lat": d.Dropoff.Lat, "lng": d.Dropoff.Lng},
		"created_at":  d.CreatedAt,
		"updated_at":  d.UpdatedAt,
	}
	if d.CarrierID != nil {
		v["carrier_id"] = *d.CarrierID
	}
	return v
}
