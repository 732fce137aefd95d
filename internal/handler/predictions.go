package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"updown/internal/models"
	"updown/internal/repository"
	"updown/internal/service"
)

type PredictionHandler struct {
	Repo   repository.Repository
	Ledger *service.PredictionLedgerService
}

func (h *PredictionHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/rooms/:id/predictions", h.place)
	r.GET("/api/v1/rooms/:id/predictions", h.listByRoom)
	r.GET("/api/v1/predictions", h.list)
}

type placePredictionRequest struct {
	User      string `json:"user"`
	Direction string `json:"direction"`
	Stake     string `json:"stake"`
}

// @Summary Place a prediction
// @Tags predictions
// @Accept json
// @Param id path string true "room id"
// @Param body body placePredictionRequest true "prediction"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id}/predictions [post]
func (h *PredictionHandler) place(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	var req placePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	stake, err := decimal.NewFromString(strings.TrimSpace(req.Stake))
	if err != nil {
		Error(c, http.StatusBadRequest, "stake must be a decimal string", nil)
		return
	}
	item, err := h.Ledger.PlacePrediction(c.Request.Context(), service.PlacePredictionParams{
		RoomID:    c.Param("id"),
		User:      req.User,
		Direction: models.Direction(strings.ToUpper(strings.TrimSpace(req.Direction))),
		Stake:     stake,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary List a room's predictions
// @Tags predictions
// @Param id path string true "room id"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id}/predictions [get]
func (h *PredictionHandler) listByRoom(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	roomID := c.Param("id")
	params := repository.ListPredictionsParams{
		Limit:   intQuery(c, "limit", 200),
		Offset:  intQuery(c, "offset", 0),
		RoomID:  &roomID,
		User:    strQueryPtr(c, "user"),
		OrderBy: c.DefaultQuery("order_by", "id"),
		Asc:     boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListPredictions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPredictions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary List predictions across rooms
// @Tags predictions
// @Param user query string false "filter by user"
// @Param outcome query string false "PENDING|WIN|LOSS"
// @Success 200 {object} map[string]any
// @Router /api/v1/predictions [get]
func (h *PredictionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListPredictionsParams{
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
		RoomID:  strQueryPtr(c, "room_id"),
		User:    strQueryPtr(c, "user"),
		OrderBy: c.DefaultQuery("order_by", "created_at"),
		Asc:     boolQueryPtr(c, "asc"),
	}
	if raw := strQueryPtr(c, "outcome"); raw != nil {
		outcome := models.PredictionOutcome(strings.ToUpper(*raw))
		if outcome != models.OutcomePending && outcome != models.OutcomeWin && outcome != models.OutcomeLoss {
			Error(c, http.StatusBadRequest, "unknown outcome", nil)
			return
		}
		params.Outcome = &outcome
	}
	items, err := h.Repo.ListPredictions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPredictions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}
