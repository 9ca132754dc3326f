package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		RateLimitPerMin int      `yaml:"rate_limit_per_minute"`
		RateLimitBurst  int      `yaml:"rate_limit_burst"`
	} `yaml:"server"`
	Logging struct {
		Production bool `yaml:"production"`
	} `yaml:"logging"`
	Database struct {
		URL            string `yaml:"url"`
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		TokenTTL       time.Duration `yaml:"token_ttl"`
		BootstrapAdmin struct {
			Email    string `yaml:"email"`
			Password string `yaml:"password"`
		} `yaml:"bootstrap_admin"`
	} `yaml:"auth"`
	Storage struct {
		Endpoint      string `yaml:"endpoint"`
		AccessKey     string `yaml:"access_key"`
		SecretKey     string `yaml:"secret_key"`
		UseSSL        bool   `yaml:"use_ssl"`
		Bucket        string `yaml:"bucket"`
		PublicBaseURL string `yaml:"public_base_url"`
		MaxPhotoBytes int64  `yaml:"max_photo_bytes"`
	} `yaml:"storage"`
	Geocoding struct {
		BaseURL   string        `yaml:"base_url"`
		UserAgent string        `yaml:"user_agent"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit_per_second"`
	} `yaml:"geocoding"`
	RabbitMQ struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		Queue   string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
	Crypto struct {
		ContactKey string `yaml:"contact_key"`
	} `yaml:"crypto"`
	PhotoSweeper struct {
		IntervalSeconds int64 `yaml:"interval_seconds"`
		MaxAttempts     int   `yaml:"max_attempts"`
	} `yaml:"photo_sweeper"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv lets secrets stay out of the YAML file.
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_URL":       &c.Database.URL,
		"JWT_SECRET":         &c.Auth.JWTSecret,
		"MINIO_ACCESS_KEY":   &c.Storage.AccessKey,
		"MINIO_SECRET_KEY":   &c.Storage.SecretKey,
		"RABBITMQ_URL":       &c.RabbitMQ.URL,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"CONTACT_KEY":        &c.Crypto.ContactKey,
	}
	for env, target := range overrides {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.RateLimitPerMin == 0 {
		c.Server.RateLimitPerMin = 60
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 10
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "file://migrations"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "issue-photos"
	}
	if c.Storage.MaxPhotoBytes == 0 {
		c.Storage.MaxPhotoBytes = 5 << 20
	}
	if c.Geocoding.BaseURL == "" {
		c.Geocoding.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoding.UserAgent == "" {
		c.Geocoding.UserAgent = "PanchayatConnect/1.0"
	}
	if c.Geocoding.Timeout == 0 {
		c.Geocoding.Timeout = 10 * time.Second
	}
	if c.Geocoding.RateLimit == 0 {
		c.Geocoding.RateLimit = 1
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "report_events"
	}
	if c.PhotoSweeper.IntervalSeconds == 0 {
		c.PhotoSweeper.IntervalSeconds = 300
	}
	if c.PhotoSweeper.MaxAttempts == 0 {
		c.PhotoSweeper.MaxAttempts = 10
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("config: storage.endpoint is required")
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("config: rabbitmq.url is required when rabbitmq is enabled")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("config: telegram.bot_token is required when telegram is enabled")
	}
	if c.Server.RateLimitPerMin <= 0 || c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("config: server.rate_limit_per_minute and server.rate_limit_burst must be positive")
	}
	if c.Geocoding.RateLimit <= 0 {
		return fmt.Errorf("config: geocoding.rate_limit_per_second must be positive")
	}
	if c.PhotoSweeper.IntervalSeconds <= 0 {
		return fmt.Errorf("config: photo_sweeper.interval_seconds must be positive")
	}
	if c.PhotoSweeper.MaxAttempts <= 0 {
		return fmt.Errorf("config: photo_sweeper.max_attempts must be positive")
	}
	return nil
}
