package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"panchayat-connect/internal/config"
	"panchayat-connect/internal/handler"
	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/middleware"
	"panchayat-connect/internal/region"
	"panchayat-connect/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Config     *config.Config
	ConfigPath string
	DB         Pinger
	Reports    service.ReportService
	Teams      service.TeamService
	Auth       service.AuthService
	Geocoder   handler.ReverseGeocoder
	Regions    *region.Directory
	Catalog    *i18n.Catalog
	Logger     *zap.Logger
}

type Server struct {
	router *gin.Engine
	deps   Deps
	logger *zap.Logger
}

func NewServer(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router: router,
		deps:   deps,
		logger: deps.Logger,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	d := s.deps
	limiter := middleware.NewIPRateLimiter(d.Config.Server.RateLimitPerMin, d.Config.Server.RateLimitBurst)

	reportHandler := handler.NewReportHandler(d.Reports, d.Catalog, s.logger)
	adminHandler := handler.NewAdminHandler(d.Reports, d.Teams, d.Catalog, s.logger)
	teamHandler := handler.NewTeamHandler(d.Reports, d.Catalog, s.logger)
	authHandler := handler.NewAuthHandler(d.Auth, d.Catalog, s.logger)
	geocodeHandler := handler.NewGeocodeHandler(d.Geocoder, d.Catalog, s.logger)
	referenceHandler := handler.NewReferenceHandler(d.Regions, d.Catalog)
	settingsHandler := handler.NewSettingsHandler(d.Config, d.ConfigPath, limiter, s.logger)

	s.router.GET("/health", s.health)

	api := s.router.Group("/api")
	{
		api.POST("/reports", limiter.Middleware(), reportHandler.Submit)
		api.GET("/reports/public", reportHandler.ListPublic)
		api.GET("/track/:trackingId", reportHandler.Track)
		api.GET("/geocode/reverse", limiter.Middleware(), geocodeHandler.Reverse)
		api.GET("/categories", referenceHandler.Categories)
		api.GET("/regions/districts", referenceHandler.Districts)
		api.GET("/regions/districts/:district/panchayats", referenceHandler.Panchayats)
		api.GET("/i18n/:lang", referenceHandler.Translations)
		api.GET("/config", settingsHandler.ClientConfig)
		api.POST("/auth/login", limiter.Middleware(), authHandler.Login)
	}

	authRequired := api.Group("")
	authRequired.Use(middleware.AuthMiddleware(d.Auth, s.logger))
	{
		authRequired.POST("/auth/logout", authHandler.Logout)
		authRequired.GET("/auth/session", authHandler.Session)
	}

	admin := authRequired.Group("/admin", middleware.AdminOnly())
	{
		admin.GET("/reports", adminHandler.ListReports)
		admin.GET("/reports/stats", adminHandler.Stats)
		admin.GET("/reports/export.csv", adminHandler.Export)
		admin.GET("/reports/:id", adminHandler.GetReport)
		admin.PATCH("/reports/:id/status", adminHandler.UpdateStatus)
		admin.POST("/reports/:id/assign", adminHandler.AssignTeam)
		admin.POST("/reports/:id/notes", adminHandler.AddNote)
		admin.GET("/teams", adminHandler.ListTeams)
		admin.PATCH("/teams/:id", adminHandler.UpdateTeam)
		admin.POST("/users", authHandler.CreateUser)
		admin.GET("/settings", settingsHandler.GetSettings)
		admin.PATCH("/settings", settingsHandler.UpdateSettings)
	}

	team := authRequired.Group("/team", middleware.TeamOnly())
	{
		team.GET("/reports", teamHandler.Reports)
		team.PATCH("/reports/:id/status", teamHandler.UpdateStatus)
		team.POST("/reports/:id/notes", teamHandler.AddNote)
	}
}

func (s *Server) health(c *gin.Context) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.PingContext(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              ":" + addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("port", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
