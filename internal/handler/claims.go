package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"updown/internal/repository"
	"updown/internal/service"
)

type ClaimHandler struct {
	Repo   repository.Repository
	Claims *service.ClaimService
}

func (h *ClaimHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/rooms/:id/claims", h.record)
	r.GET("/api/v1/claims", h.list)
}

type recordClaimRequest struct {
	User  string `json:"user"`
	TxRef string `json:"tx_ref"`
}

// @Summary Record a payout claim
// @Tags claims
// @Accept json
// @Param id path string true "room id"
// @Param body body recordClaimRequest true "claim"
// @Success 200 {object} map[string]any
// @Router /api/v1/rooms/{id}/claims [post]
func (h *ClaimHandler) record(c *gin.Context) {
	if h.Claims == nil {
		Error(c, http.StatusInternalServerError, "claims unavailable", nil)
		return
	}
	var req recordClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	rec, created, err := h.Claims.RecordClaim(c.Request.Context(), c.Param("id"), req.User, strings.TrimSpace(req.TxRef))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, rec, map[string]any{"created": created})
}

// @Summary List claim records
// @Tags claims
// @Param room_id query string false "filter by room"
// @Param user query string false "filter by user"
// @Success 200 {object} map[string]any
// @Router /api/v1/claims [get]
func (h *ClaimHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListClaimsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		RoomID: strQueryPtr(c, "room_id"),
		User:   strQueryPtr(c, "user"),
	}
	items, err := h.Repo.ListClaimRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountClaimRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}
