package handler

import (
	"errors"
	"net/http"

	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/service"
	"panchayat-connect/internal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// languageOf prefers an explicit ?lang= over Accept-Language.
func languageOf(c *gin.Context) i18n.Language {
	if q := c.Query("lang"); q != "" {
		return i18n.ParseLanguage(q)
	}
	return i18n.ParseLanguage(c.GetHeader("Accept-Language"))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "VALIDATION"})
}

// respondError maps service and workflow errors onto HTTP responses.
// Anything unrecognised is logged and reported as 500.
func respondError(c *gin.Context, catalog *i18n.Catalog, logger *zap.Logger, op string, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		message := verr.Key
		if catalog != nil {
			message = catalog.T(languageOf(c), verr.Key)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "VALIDATION", "field": verr.Field})
		return
	}

	var transition workflow.InvalidTransitionError
	if errors.As(err, &transition) {
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"code":  "INVALID_TRANSITION",
			"from":  transition.From,
			"to":    transition.To,
		})
		return
	}

	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrTeamNotFound):
		status, code = http.StatusNotFound, "TEAM_NOT_FOUND"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, service.ErrVersionConflict):
		status, code = http.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, service.ErrTrackingIDCollision):
		status, code = http.StatusConflict, "TRACKING_ID_COLLISION"
	case errors.Is(err, service.ErrEmailTaken):
		status, code = http.StatusConflict, "EMAIL_TAKEN"
	case errors.Is(err, workflow.ErrReportClosed):
		status, code = http.StatusConflict, "REPORT_CLOSED"
	case errors.Is(err, workflow.ErrTeamRequired):
		status, code = http.StatusConflict, "TEAM_REQUIRED"
	case errors.Is(err, workflow.ErrUnknownStatus), errors.Is(err, workflow.ErrEmptyNote):
		status, code = http.StatusBadRequest, "VALIDATION"
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("op", op), zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
