package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"panchayat-connect/internal/config"
	"panchayat-connect/internal/crypto"
	"panchayat-connect/internal/events"
	"panchayat-connect/internal/geocoding"
	"panchayat-connect/internal/i18n"
	"panchayat-connect/internal/notification_worker"
	"panchayat-connect/internal/photo_sweeper"
	"panchayat-connect/internal/region"
	"panchayat-connect/internal/repository"
	"panchayat-connect/internal/server"
	"panchayat-connect/internal/service"
	"panchayat-connect/internal/storage"
	"panchayat-connect/internal/telegram_bot"
)

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.Logging.Production)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	regions, err := region.Load()
	if err != nil {
		logger.Fatal("Failed to load region table", zap.Error(err))
	}
	catalog, err := i18n.Load()
	if err != nil {
		logger.Fatal("Failed to load translations", zap.Error(err))
	}

	contacts, err := crypto.NewContactCipher(cfg.Crypto.ContactKey)
	if err != nil {
		logger.Fatal("Invalid contact encryption key", zap.Error(err))
	}
	if !contacts.Enabled() {
		logger.Warn("Contact encryption is disabled, contact details are stored in clear")
	}

	photos, err := storage.NewMinioPhotoStore(storage.Options{
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		UseSSL:        cfg.Storage.UseSSL,
		Bucket:        cfg.Storage.Bucket,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create object storage client", zap.Error(err))
	}
	if err := photos.EnsureBucket(ctx); err != nil {
		logger.Fatal("Failed to prepare photo bucket", zap.Error(err))
	}

	// Initialize repositories
	reportRepo := repository.NewReportRepository(db, logger)
	teamRepo := repository.NewTeamRepository(db, logger)
	authRepo := repository.NewAuthRepository(db, logger)
	orphanRepo := repository.NewOrphanedPhotoRepository(db, logger)

	var publisher events.Publisher = events.NoopPublisher{Logger: logger}
	var consumer events.Consumer
	if cfg.RabbitMQ.Enabled {
		publisher, err = events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Fatal("Failed to connect event publisher", zap.Error(err))
		}
		consumer, err = events.NewRabbitConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Fatal("Failed to connect event consumer", zap.Error(err))
		}
		defer consumer.Close()
	}
	defer publisher.Close()

	authService := service.NewAuthService(authRepo, teamRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdmin.Email, cfg.Auth.BootstrapAdmin.Password); err != nil {
		logger.Fatal("Failed to create bootstrap admin", zap.Error(err))
	}

	reportService := service.NewReportService(service.ReportDeps{
		Reports:       reportRepo,
		Teams:         teamRepo,
		Orphans:       orphanRepo,
		Photos:        photos,
		Events:        publisher,
		Contacts:      contacts,
		Regions:       regions,
		MaxPhotoBytes: cfg.Storage.MaxPhotoBytes,
		Logger:        logger,
	})
	teamService := service.NewTeamService(teamRepo, logger)

	geocoder := geocoding.NewClient(geocoding.Options{
		BaseURL:    cfg.Geocoding.BaseURL,
		UserAgent:  cfg.Geocoding.UserAgent,
		Timeout:    cfg.Geocoding.Timeout,
		RateLimit:  rate.Limit(cfg.Geocoding.RateLimit),
		MaxRetries: 2,
	}, regions, logger)

	// Telegram bot for team notifications (nil when disabled)
	bot, err := telegram_bot.NewBot(cfg.Telegram.Enabled, cfg.Telegram.BotToken, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		bot = nil
	}
	if bot != nil {
		go func() {
			if err := bot.Start(ctx); err != nil {
				logger.Error("Telegram bot failed", zap.Error(err))
			}
		}()
	}

	if consumer != nil {
		worker := notification_worker.NewWorker(consumer, teamRepo, bot, logger)
		go worker.Run(ctx)
	}

	sweeper := photo_sweeper.NewSweeper(orphanRepo, photos, authRepo, cfg.PhotoSweeper.IntervalSeconds, cfg.PhotoSweeper.MaxAttempts, logger)
	go sweeper.Run(ctx)

	srv := server.NewServer(server.Deps{
		Config:     cfg,
		ConfigPath: *cfgPath,
		DB:         db,
		Reports:    reportService,
		Teams:      teamService,
		Auth:       authService,
		Geocoder:   geocoder,
		Regions:    regions,
		Catalog:    catalog,
		Logger:     logger,
	})
	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	logger.Info("Application stopped.")
}
