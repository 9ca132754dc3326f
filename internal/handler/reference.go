package handler

import (
	"net/http"

	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/models"
	"panchayat-connect/internal/region"

	"github.com/gin-gonic/gin"
)

// ReferenceHandler serves the static lookup tables the forms are built from.
type ReferenceHandler interface {
	Categories(c *gin.Context)
	Districts(c *gin.Context)
	Panchayats(c *gin.Context)
	Translations(c *gin.Context)
}

type referenceHandler struct {
	regions *region.Directory
	catalog *i18n.Catalog
}

func NewReferenceHandler(regions *region.Directory, catalog *i18n.Catalog) ReferenceHandler {
	return &referenceHandler{regions: regions, catalog: catalog}
}

type categoryView struct {
	Code        models.Category `json:"code"`
	Icon        string          `json:"icon"`
	DefaultTeam models.TeamCode `json:"default_team"`
	Label       string          `json:"label"`
}

func (h *referenceHandler) Categories(c *gin.Context) {
	lang := languageOf(c)
	out := make([]categoryView, 0, len(models.Categories))
	for _, cat := range models.Categories {
		out = append(out, categoryView{
			Code:        cat,
			Icon:        models.CategoryIcons[cat],
			DefaultTeam: models.CategoryToTeam[cat],
			Label:       h.catalog.T(lang, "categories."+string(cat)),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *referenceHandler) Districts(c *gin.Context) {
	c.JSON(http.StatusOK, h.regions.Districts())
}

func (h *referenceHandler) Panchayats(c *gin.Context) {
	panchayats, ok := h.regions.Panchayats(c.Param("district"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "district not found", "code": "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, panchayats)
}

// Translations handles GET /api/i18n/:lang
func (h *referenceHandler) Translations(c *gin.Context) {
	lang := i18n.Language(c.Param("lang"))
	dict, ok := h.catalog.Dictionary(lang)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "language not supported", "code": "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, dict)
}
