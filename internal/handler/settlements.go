package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"updown/internal/repository"
)

type SettlementHandler struct {
	Repo repository.Repository
}

func (h *SettlementHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/settlements", h.list)
	r.GET("/api/v1/rooms/:id/settlement", h.getByRoom)
}

// @Summary List settlement records
// @Tags settlements
// @Param since query string false "RFC3339 lower bound on settled_at"
// @Success 200 {object} map[string]any
// @Router /api/v1/settlements [get]
func (h *SettlementHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListSettlementsParams{
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
		OrderBy: c.DefaultQuery("order_by", "settled_at"),
		Asc:     boolQueryPtr(c, "asc"),
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "since must be RFC3339", nil)
			return
		}
		utc := ts.UTC()
		params.Since = &utc
	}
	items, err := h.Repo.ListSettlementRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountSettlementRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get a room's settlement record
// @Tags settlements
// @Param id path string true "room id"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id}/settlement [get]
func (h *SettlementHandler) getByRoom(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	rec, err := h.Repo.GetSettlementRecordByRoomID(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if rec == nil {
		Error(c, http.StatusNotFound, "room not settled", nil)
		return
	}
	Ok(c, rec, nil)
}
