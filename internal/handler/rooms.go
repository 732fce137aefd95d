package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"updown/internal/models"
	"updown/internal/repository"
	"updown/internal/service"
)

type RoomHandler struct {
	Repo       repository.Repository
	Lifecycle  *service.RoomLifecycleService
	Reconciler *service.ReconcileService
}

func (h *RoomHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/rooms")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("/:id/start", h.start)
	group.POST("/:id/cancel", h.cancel)
	group.POST("/:id/settle", h.settle)
}

// roomView is a room as the API reports it: the stored row plus the
// clock-derived effective status.
type roomView struct {
	*models.Room
	EffectiveStatus models.RoomStatus `json:"effective_status"`
}

func newRoomView(room *models.Room) roomView {
	return roomView{
		Room:            room,
		EffectiveStatus: service.EffectiveStatus(room, time.Now().UTC()),
	}
}

type createRoomRequest struct {
	Creator         string `json:"creator"`
	Symbol          string `json:"symbol"`
	MinStake        string `json:"min_stake"`
	DurationMinutes int    `json:"duration_minutes"`
}

// @Summary Create a room
// @Tags rooms
// @Accept json
// @Param body body createRoomRequest true "room"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms [post]
func (h *RoomHandler) create(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusInternalServerError, "lifecycle unavailable", nil)
		return
	}
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	minStake, err := decimal.NewFromString(strings.TrimSpace(req.MinStake))
	if err != nil {
		Error(c, http.StatusBadRequest, "min_stake must be a decimal string", nil)
		return
	}
	room, err := h.Lifecycle.CreateRoom(c.Request.Context(), service.CreateRoomParams{
		Creator:         req.Creator,
		Symbol:          req.Symbol,
		MinStake:        minStake,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, newRoomView(room), nil)
}

// @Summary List rooms
// @Tags rooms
// @Param status query string false "filter by stored status"
// @Param symbol query string false "filter by symbol"
// @Param creator query string false "filter by creator"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms [get]
func (h *RoomHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListRoomsParams{
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
		Symbol:  strQueryPtr(c, "symbol"),
		Creator: strQueryPtr(c, "creator"),
		OrderBy: c.DefaultQuery("order_by", "created_at"),
		Asc:     boolQueryPtr(c, "asc"),
	}
	if raw := strQueryPtr(c, "status"); raw != nil {
		status := models.RoomStatus(strings.ToLower(*raw))
		if !status.Valid() {
			Error(c, http.StatusBadRequest, "unknown status", nil)
			return
		}
		params.Status = &status
	}
	rooms, err := h.Repo.ListRooms(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountRooms(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	views := make([]roomView, 0, len(rooms))
	for i := range rooms {
		views = append(views, newRoomView(&rooms[i]))
	}
	Ok(c, views, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get a room
// @Tags rooms
// @Param id path string true "room id"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id} [get]
func (h *RoomHandler) get(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusInternalServerError, "lifecycle unavailable", nil)
		return
	}
	room, err := h.Lifecycle.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, newRoomView(room), nil)
}

type startRoomRequest struct {
	StartingPrice *string `json:"starting_price"`
}

// @Summary Start a room
// @Tags rooms
// @Accept json
// @Param id path string true "room id"
// @Param body body startRoomRequest false "optional starting price override"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id}/start [post]
func (h *RoomHandler) start(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusInternalServerError, "lifecycle unavailable", nil)
		return
	}
	var req startRoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	var price *decimal.Decimal
	if req.StartingPrice != nil && strings.TrimSpace(*req.StartingPrice) != "" {
		v, err := decimal.NewFromString(strings.TrimSpace(*req.StartingPrice))
		if err != nil {
			Error(c, http.StatusBadRequest, "starting_price must be a decimal string", nil)
			return
		}
		price = &v
	}
	room, err := h.Lifecycle.StartRoom(c.Request.Context(), c.Param("id"), price)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, newRoomView(room), nil)
}

// @Summary Cancel a waiting room
// @Tags rooms
// @Param id path string true "room id"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id}/cancel [post]
func (h *RoomHandler) cancel(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusInternalServerError, "lifecycle unavailable", nil)
		return
	}
	room, err := h.Lifecycle.CancelRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, newRoomView(room), nil)
}

// @Summary Settle a completed room now
// @Tags rooms
// @Param id path string true "room id"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id}/settle [post]
func (h *RoomHandler) settle(c *gin.Context) {
	if h.Reconciler == nil {
		Error(c, http.StatusInternalServerError, "reconciler unavailable", nil)
		return
	}
	rec, err := h.Reconciler.SettleRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, rec, nil)
}
