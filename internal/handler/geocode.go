package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"panchayat-connect/internal/geocoding"
	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*models.LocationData, error)
}

type GeocodeHandler interface {
	Reverse(c *gin.Context)
}

type geocodeHandler struct {
	geocoder ReverseGeocoder
	catalog  *i18n.Catalog
	logger   *zap.Logger
}

func NewGeocodeHandler(geocoder ReverseGeocoder, catalog *i18n.Catalog, logger *zap.Logger) GeocodeHandler {
	return &geocodeHandler{geocoder: geocoder, catalog: catalog, logger: logger}
}

// Reverse handles GET /api/geocode/reverse?lat=&lng=
func (h *geocodeHandler) Reverse(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil || !geocoding.ValidCoordinates(lat, lng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be valid coordinates", "code": geocoding.CodeInvalid})
		return
	}

	location, err := h.geocoder.Reverse(c.Request.Context(), lat, lng)
	if err == nil {
		c.JSON(http.StatusOK, location)
		return
	}

	var locErr *geocoding.LocationError
	if !errors.As(err, &locErr) {
		respondError(c, h.catalog, h.logger, "reverse geocode", err)
		return
	}

	lang := languageOf(c)
	switch locErr.Code {
	case geocoding.CodeInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be valid coordinates", "code": locErr.Code})
	case geocoding.CodeTimeout:
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":        h.catalog.T(lang, "messages.locationTimeout"),
			"code":         locErr.Code,
			"fallback":     locErr.Fallback,
			"manual_entry": true,
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        h.catalog.T(lang, "messages.locationUnavailable"),
			"code":         locErr.Code,
			"fallback":     locErr.Fallback,
			"manual_entry": true,
		})
	}
}
