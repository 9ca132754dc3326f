package handler

import (
	"errors"
	"net/http"

	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/middleware"
	"panchayat-connect/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler interface {
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Session(c *gin.Context)
	CreateUser(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	catalog     *i18n.Catalog
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, catalog *i18n.Catalog, logger *zap.Logger) AuthHandler {
	return &authHandler{authService: authService, catalog: catalog, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Failed to bind JSON for login", zap.Error(err))
		badRequest(c, "email and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Info("Rejected login", zap.String("email", req.Email), zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "UNAUTHORIZED"})
			return
		}
		respondError(c, h.catalog, h.logger, "login", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *authHandler) Logout(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if err := h.authService.Logout(c.Request.Context(), session); err != nil {
		respondError(c, h.catalog, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Session handles GET /api/auth/session
func (h *authHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.SessionFrom(c))
}

// CreateUser handles POST /api/admin/users
func (h *authHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.catalog, h.logger, "create user", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
