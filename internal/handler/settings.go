package handler

import (
	"net/http"
	"os"
	"sync"

	"panchayat-connect/internal/config"
	"panchayat-connect/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RateLimitControl is the live request limiter of the public write routes.
type RateLimitControl interface {
	SetLimit(perMinute, burst int)
	Limits() (perMinute, burst int)
}

type SettingsHandler interface {
	ClientConfig(c *gin.Context)
	GetSettings(c *gin.Context)
	UpdateSettings(c *gin.Context)
}

type settingsHandler struct {
	mu         sync.Mutex
	cfg        *config.Config
	configPath string
	limiter    RateLimitControl
	logger     *zap.Logger
}

func NewSettingsHandler(cfg *config.Config, configPath string, limiter RateLimitControl, logger *zap.Logger) SettingsHandler {
	return &settingsHandler{
		cfg:        cfg,
		configPath: configPath,
		limiter:    limiter,
		logger:     logger,
	}
}

// ClientConfig handles GET /api/config
func (h *settingsHandler) ClientConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"max_photos":       service.MaxPhotos,
		"max_photo_bytes":  h.cfg.Storage.MaxPhotoBytes,
		"max_title_length": service.MaxTitleLength,
		"languages":        []string{"en", "ml"},
	})
}

// SettingsResponse represents the current runtime settings. Secrets are never included.
type SettingsResponse struct {
	RateLimit struct {
		PerMinute int `json:"perMinute"`
		Burst     int `json:"burst"`
	} `json:"rateLimit"`
	Notifications struct {
		RabbitMQ bool `json:"rabbitmq"`
		Telegram bool `json:"telegram"`
	} `json:"notifications"`
	PhotoSweeper struct {
		IntervalSeconds int64 `json:"intervalSeconds"`
		MaxAttempts     int   `json:"maxAttempts"`
	} `json:"photoSweeper"`
	ContactEncryption bool `json:"contactEncryption"`
}

// GetSettings handles GET /api/admin/settings
func (h *settingsHandler) GetSettings(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var response SettingsResponse
	response.RateLimit.PerMinute, response.RateLimit.Burst = h.limiter.Limits()
	response.Notifications.RabbitMQ = h.cfg.RabbitMQ.Enabled
	response.Notifications.Telegram = h.cfg.Telegram.Enabled
	response.ContactEncryption = h.cfg.Crypto.ContactKey != ""
	response.PhotoSweeper.IntervalSeconds = h.cfg.PhotoSweeper.IntervalSeconds
	response.PhotoSweeper.MaxAttempts = h.cfg.PhotoSweeper.MaxAttempts

	c.JSON(http.StatusOK, response)
}

// UpdateSettingsRequest holds the settings that can change without a restart.
type UpdateSettingsRequest struct {
	RateLimit *struct {
		PerMinute *int `json:"perMinute"`
		Burst     *int `json:"burst"`
	} `json:"rateLimit,omitempty"`
}

// UpdateSettings handles PATCH /api/admin/settings. The change is applied
// live and written back to the config file when one is known.
func (h *settingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Failed to bind settings request", zap.Error(err))
		badRequest(c, err.Error())
		return
	}
	if req.RateLimit == nil {
		badRequest(c, "nothing to update")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	perMinute, burst := h.limiter.Limits()
	if req.RateLimit.PerMinute != nil {
		perMinute = *req.RateLimit.PerMinute
	}
	if req.RateLimit.Burst != nil {
		burst = *req.RateLimit.Burst
	}
	if perMinute <= 0 || burst <= 0 {
		badRequest(c, "rate limit values must be positive")
		return
	}

	if h.configPath != "" {
		if err := h.persist(perMinute, burst); err != nil {
			h.logger.Error("Failed to write config file", zap.Error(err), zap.String("path", h.configPath))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write config file", "code": "INTERNAL"})
			return
		}
	}

	h.limiter.SetLimit(perMinute, burst)
	h.cfg.Server.RateLimitPerMin = perMinute
	h.cfg.Server.RateLimitBurst = burst
	h.logger.Info("Rate limit updated", zap.Int("per_minute", perMinute), zap.Int("burst", burst))

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully"})
}

// persist rewrites the rate limit keys of the server section and keeps every
// other key as parsed.
func (h *settingsHandler) persist(perMinute, burst int) error {
	data, err := os.ReadFile(h.configPath)
	if err != nil {
		return err
	}

	var configData map[string]any
	if err := yaml.Unmarshal(data, &configData); err != nil {
		return err
	}
	if configData == nil {
		configData = make(map[string]any)
	}

	server, ok := configData["server"].(map[string]any)
	if !ok {
		server = make(map[string]any)
		configData["server"] = server
	}
	server["rate_limit_per_minute"] = perMinute
	server["rate_limit_burst"] = burst

	newData, err := yaml.Marshal(configData)
	if err != nil {
		return err
	}
	return os.WriteFile(h.configPath, newData, 0o644)
}
