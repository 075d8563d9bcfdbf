package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appanalytics "github.com/MikeL71221ibpm/iBPM-sub012/internal/application/analytics"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

const dateParam = "2006-01-02"

// AnalyticsService is the application surface the handler needs.
type AnalyticsService interface {
	Pivot(ctx context.Context, req appanalytics.PivotRequest) (atypes.PivotResponse, error)
	Heatmap(ctx context.Context, req appanalytics.PivotRequest) ([]atypes.HeatmapSeries, error)
	Bubble(ctx context.Context, req appanalytics.PivotRequest) ([]atypes.BubblePoint, error)
	Legend() []atypes.LegendEntry
}

// AnalyticsHandler serves the per-patient pivot and chart-series endpoints.
type AnalyticsHandler struct {
	service AnalyticsService
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(service AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// parseRequest builds a PivotRequest from the path and query string.
// Dimension defaults to symptom_segment; from/to accept YYYY-MM-DD.
func parseRequest(c *gin.Context) (appanalytics.PivotRequest, error) {
	req := appanalytics.PivotRequest{
		PatientID: common.PatientID(c.Param("patientID")),
		Dimension: atypes.DimensionSymptomSegment,
	}
	if req.PatientID == "" {
		return req, errors.InvalidParam("patient id is required")
	}

	if d := c.Query("dimension"); d != "" {
		req.Dimension = atypes.Dimension(d)
	}

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(dateParam, v)
		if err != nil {
			return req, errors.New(errors.CodeDateRangeInvalid, "from must be YYYY-MM-DD").WithDetail(v)
		}
		req.DateRange.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(dateParam, v)
		if err != nil {
			return req, errors.New(errors.CodeDateRangeInvalid, "to must be YYYY-MM-DD").WithDetail(v)
		}
		req.DateRange.To = t
	}

	if v := c.Query("include_negated"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, errors.InvalidParam("include_negated must be a boolean").WithDetail(v)
		}
		req.IncludeNegated = b
	}
	return req, nil
}

// Pivot handles GET /patients/:patientID/pivot.
func (h *AnalyticsHandler) Pivot(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.service.Pivot(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Heatmap handles GET /patients/:patientID/heatmap.
func (h *AnalyticsHandler) Heatmap(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	series, err := h.service.Heatmap(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, series)
}

// Bubble handles GET /patients/:patientID/bubble.
func (h *AnalyticsHandler) Bubble(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	points, err := h.service.Bubble(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, points)
}

// Legend handles GET /analytics/legend.  The legend is static; clients
// render colors from it instead of duplicating thresholds.
func (h *AnalyticsHandler) Legend(c *gin.Context) {
	respond(c, http.StatusOK, h.service.Legend())
}
