package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/middleware"
	"panchayat-connect/internal/models"
	"panchayat-connect/internal/service"
	"panchayat-connect/internal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler interface {
	ListReports(c *gin.Context)
	Stats(c *gin.Context)
	Export(c *gin.Context)
	GetReport(c *gin.Context)
	UpdateStatus(c *gin.Context)
	AssignTeam(c *gin.Context)
	AddNote(c *gin.Context)
	ListTeams(c *gin.Context)
	UpdateTeam(c *gin.Context)
}

type adminHandler struct {
	reports service.ReportService
	teams   service.TeamService
	catalog *i18n.Catalog
	logger  *zap.Logger
	now     func() time.Time
}

func NewAdminHandler(reports service.ReportService, teams service.TeamService, catalog *i18n.Catalog, logger *zap.Logger) AdminHandler {
	return &adminHandler{reports: reports, teams: teams, catalog: catalog, logger: logger, now: time.Now}
}

// reportView adds the statuses the caller may move the report to.
type reportView struct {
	*models.Report
	AllowedNext []models.Status `json:"allowed_next"`
}

func viewFor(session *models.Session, r *models.Report) reportView {
	role := models.RoleAdmin
	if session != nil {
		role = session.Role
	}
	return reportView{Report: r, AllowedNext: workflow.AllowedNext(r.Status, role)}
}

type AssignRequest struct {
	TeamID          int64 `json:"team_id" binding:"required"`
	ExpectedVersion *int  `json:"expected_version"`
}

type NoteRequest struct {
	Text            string `json:"text" binding:"required"`
	ExpectedVersion *int   `json:"expected_version"`
}

func (h *adminHandler) bindFilter(c *gin.Context) (service.Filter, bool) {
	var filter service.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err.Error())
		return filter, false
	}
	return filter, true
}

// ListReports handles GET /api/admin/reports
func (h *adminHandler) ListReports(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	reports, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.catalog, h.logger, "list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// Stats handles GET /api/admin/reports/stats
func (h *adminHandler) Stats(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	stats, err := h.reports.Stats(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.catalog, h.logger, "report stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Export handles GET /api/admin/reports/export.csv
func (h *adminHandler) Export(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reports.Export(c.Request.Context(), filter, &buf); err != nil {
		respondError(c, h.catalog, h.logger, "export reports", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+service.ExportFileName(h.now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetReport handles GET /api/admin/reports/:id
func (h *adminHandler) GetReport(c *gin.Context) {
	session := middleware.SessionFrom(c)
	report, err := h.reports.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondError(c, h.catalog, h.logger, "get report", err)
		return
	}
	c.JSON(http.StatusOK, viewFor(session, report))
}

// UpdateStatus handles PATCH /api/admin/reports/:id/status
func (h *adminHandler) UpdateStatus(c *gin.Context) {
	updateStatus(c, h.reports, h.catalog, h.logger)
}

// AssignTeam handles POST /api/admin/reports/:id/assign
func (h *adminHandler) AssignTeam(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	session := middleware.SessionFrom(c)
	report, err := h.reports.AssignTeam(c.Request.Context(), session, c.Param("id"), req.TeamID, req.ExpectedVersion)
	if err != nil {
		respondError(c, h.catalog, h.logger, "assign team", err)
		return
	}
	c.JSON(http.StatusOK, viewFor(session, report))
}

// AddNote handles POST /api/admin/reports/:id/notes
func (h *adminHandler) AddNote(c *gin.Context) {
	addNote(c, h.reports, h.catalog, h.logger)
}

// ListTeams handles GET /api/admin/teams
func (h *adminHandler) ListTeams(c *gin.Context) {
	teams, err := h.teams.List(c.Request.Context())
	if err != nil {
		respondError(c, h.catalog, h.logger, "list teams", err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

// UpdateTeamRequest registers a team's Telegram chat. 0 unregisters it.
type UpdateTeamRequest struct {
	TelegramChatID *int64 `json:"telegram_chat_id" binding:"required"`
}

// UpdateTeam handles PATCH /api/admin/teams/:id
func (h *adminHandler) UpdateTeam(c *gin.Context) {
	teamID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.catalog, h.logger, "update team", service.ErrTeamNotFound)
		return
	}
	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "telegram_chat_id is required")
		return
	}

	team, err := h.teams.SetTelegramChat(c.Request.Context(), teamID, *req.TelegramChatID)
	if err != nil {
		respondError(c, h.catalog, h.logger, "update team", err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// updateStatus and addNote are shared by the admin and team routes; the
// service applies the role rules.
func updateStatus(c *gin.Context, reports service.ReportService, catalog *i18n.Catalog, logger *zap.Logger) {
	var req service.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		badRequest(c, "status is required")
		return
	}

	session := middleware.SessionFrom(c)
	report, err := reports.UpdateStatus(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		respondError(c, catalog, logger, "update status", err)
		return
	}
	c.JSON(http.StatusOK, viewFor(session, report))
}

func addNote(c *gin.Context, reports service.ReportService, catalog *i18n.Catalog, logger *zap.Logger) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	session := middleware.SessionFrom(c)
	report, err := reports.AddNote(c.Request.Context(), session, c.Param("id"), req.Text, req.ExpectedVersion)
	if err != nil {
		respondError(c, catalog, logger, "add note", err)
		return
	}
	c.JSON(http.StatusCreated, viewFor(session, report))
}
