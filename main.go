package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yourland-onboarding/config"
	"yourland-onboarding/handlers"
	"yourland-onboarding/logging"
	"yourland-onboarding/middleware"
	"yourland-onboarding/models"
	"yourland-onboarding/resolver"
	"yourland-onboarding/services"
	"yourland-onboarding/utils"
	"yourland-onboarding/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&models.Account{},
		&models.ReferralRelationship{},
		&models.LandClaim{},
		&models.LandClaimArchive{},
	); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	clock := clockwork.NewRealClock()

	// --- Identity resolution ---
	cacheOpts := []resolver.CacheOption{resolver.WithLogger(logger.Named("resolver-cache"))}
	if cfg.RedisURL != "" {
		store, err := resolver.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis cache tier unavailable, using in-process cache only", zap.Error(err))
		} else {
			defer store.Close()
			cacheOpts = append(cacheOpts, resolver.WithRemote(store))
		}
	}
	cache := resolver.NewCache(cfg.ResolverCacheTTL, clock, cacheOpts...)

	ens, ethClient, err := resolver.Dial(ctx, cfg.EthereumRPCURL, cache, resolver.Options{
		Timeout: cfg.ResolverTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("failed to connect to ethereum rpc", zap.Error(err))
	}
	defer ethClient.Close()
	defer ens.Close()

	sched, err := services.StartMaintenanceScheduler(cache, cfg.CacheSweepInterval, logger)
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer func() { _ = sched.Shutdown() }()

	// --- Services ---
	accountService := services.NewAccountService(db, clock, logger)
	referralService := services.NewReferralService(db, clock, logger)
	claimService := services.NewClaimService(db, clock, logger)
	profileService := services.NewProfileService(db, ens, clock, logger)
	inviteService := services.NewInviteService(db, logger)

	// --- Claim archive ---
	if cfg.ArchiveEnabled() {
		r2, err := utils.NewR2Client(ctx, utils.R2Config{
			AccountID:       cfg.CloudflareAccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2BucketName,
		})
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		archiver := workers.NewClaimArchiver(db, r2, clock, logger)
		go workers.PollClaimArchive(ctx, archiver, cfg.ArchivePollInterval)
	} else {
		logger.Info("R2_BUCKET_NAME not set, land claim archiving disabled")
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	origins := cfg.CORSOrigins()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PATCH,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Device-ID",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
	app.Use(middleware.DeviceContext())
	app.Use(middleware.RequestLogger(logger))

	handlers.SetupHealthRoutes(app, db)
	handlers.SetupEphemeralRoutes(app, accountService, middleware.ServiceToken(cfg.AppServiceToken, logger))
	handlers.SetupInviteRoutes(app, inviteService)
	handlers.SetupProfileRoutes(app, profileService)
	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupLandRoutes(app, claimService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.String("database_driver", cfg.DatabaseDriver),
		zap.String("cors_origins", origins),
		zap.Bool("claim_archive", cfg.ArchiveEnabled()))

	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}
	return gorm.Open(dialector, &gorm.Config{})
}
