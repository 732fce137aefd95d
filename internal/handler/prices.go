package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"updown/internal/repository"
	"updown/internal/service"
)

type PriceHandler struct {
	Repo   repository.Repository
	Prices service.PriceSource

	// MaxStaleness bounds how old a cached tick may be before the REST feed
	// is consulted.
	MaxStaleness time.Duration
}

func (h *PriceHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/prices/:symbol", h.get)
}

type priceView struct {
	Symbol    string    `json:"symbol"`
	Price     string    `json:"price"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// @Summary Current price for a symbol
// @Tags prices
// @Param symbol path string true "trading pair, e.g. BTCUSDT"
// @Success 200 {object} map[string]any
// @Router /api/v1/prices/{symbol} [get]
func (h *PriceHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		Error(c, http.StatusBadRequest, "symbol required", nil)
		return
	}
	staleness := h.MaxStaleness
	if staleness <= 0 {
		staleness = 30 * time.Second
	}
	tick, err := h.Repo.GetPriceTick(c.Request.Context(), symbol)
	if err == nil && tick != nil && time.Since(tick.UpdatedAt) <= staleness {
		Ok(c, priceView{
			Symbol:    tick.Symbol,
			Price:     tick.Price.String(),
			Source:    tick.Source,
			UpdatedAt: tick.UpdatedAt,
		}, nil)
		return
	}
	if h.Prices == nil {
		Error(c, http.StatusBadGateway, "price feed unavailable", nil)
		return
	}
	price, at, err := h.Prices.GetPrice(c.Request.Context(), symbol)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, priceView{
		Symbol:    symbol,
		Price:     price.String(),
		Source:    "rest",
		UpdatedAt: at,
	}, nil)
}
