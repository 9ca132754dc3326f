package handler

import (
	"net/http"
	"strconv"

	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportHandler serves the citizen-facing report endpoints.
type ReportHandler interface {
	Submit(c *gin.Context)
	Track(c *gin.Context)
	ListPublic(c *gin.Context)
}

type reportHandler struct {
	reports service.ReportService
	catalog *i18n.Catalog
	logger  *zap.Logger
}

func NewReportHandler(reports service.ReportService, catalog *i18n.Catalog, logger *zap.Logger) ReportHandler {
	return &reportHandler{reports: reports, catalog: catalog, logger: logger}
}

// Submit handles POST /api/reports
func (h *reportHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Failed to bind report submission", zap.Error(err))
		badRequest(c, h.catalog.T(languageOf(c), "messages.requiredFields"))
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.catalog, h.logger, "submit report", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     h.catalog.T(languageOf(c), "messages.reportSubmitted"),
		"tracking_id": report.TrackingID,
		"report":      report.Public(),
	})
}

// Track handles GET /api/track/:trackingId
func (h *reportHandler) Track(c *gin.Context) {
	report, err := h.reports.Track(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		respondError(c, h.catalog, h.logger, "track report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListPublic handles GET /api/reports/public
func (h *reportHandler) ListPublic(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	reports, err := h.reports.ListPublic(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.catalog, h.logger, "list public reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}
