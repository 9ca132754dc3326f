package handler

import (
	"net/http"

	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/middleware"
	"panchayat-connect/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TeamHandler interface {
	Reports(c *gin.Context)
	UpdateStatus(c *gin.Context)
	AddNote(c *gin.Context)
}

type teamHandler struct {
	reports service.ReportService
	catalog *i18n.Catalog
	logger  *zap.Logger
}

func NewTeamHandler(reports service.ReportService, catalog *i18n.Catalog, logger *zap.Logger) TeamHandler {
	return &teamHandler{reports: reports, catalog: catalog, logger: logger}
}

// Reports handles GET /api/team/reports
func (h *teamHandler) Reports(c *gin.Context) {
	session := middleware.SessionFrom(c)
	reports, err := h.reports.TeamReports(c.Request.Context(), session)
	if err != nil {
		respondError(c, h.catalog, h.logger, "team reports", err)
		return
	}

	views := make([]reportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, viewFor(session, r))
	}
	c.JSON(http.StatusOK, gin.H{"reports": views, "count": len(views)})
}

// UpdateStatus handles PATCH /api/team/reports/:id/status
func (h *teamHandler) UpdateStatus(c *gin.Context) {
	updateStatus(c, h.reports, h.catalog, h.logger)
}

// AddNote handles POST /api/team/reports/:id/notes
func (h *teamHandler) AddNote(c *gin.Context) {
	addNote(c, h.reports, h.catalog, h.logger)
}
