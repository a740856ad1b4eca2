package grchttp

import (
	"log/slog"
	"net/http"

	"github.com/grcdash/grcdash/internal/grc"
	"github.com/grcdash/grcdash/internal/platform/httpx"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/dashboard.html", "Dashboard", map[string]any{"Dashboard": d}, http.StatusOK)
}

type heatmapResponse struct {
	Risks []grc.HeatmapPoint `json:"risks"`
}

func (h *Handler) riskHeatmap(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.RiskHeatmap(r.Context())
	if err != nil {
		h.logger.Error("risk heatmap", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if points == nil {
		points = []grc.HeatmapPoint{}
	}
	httpx.JSON(w, http.StatusOK, heatmapResponse{Risks: points})
}
