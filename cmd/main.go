package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/toolntask/toolntask-api/config"
	api "github.com/toolntask/toolntask-api/internal/api"
	"github.com/toolntask/toolntask-api/internal/authprovider"
	firebaseclient "github.com/toolntask/toolntask-api/internal/firebase"
	"github.com/toolntask/toolntask-api/internal/janitor"
	"github.com/toolntask/toolntask-api/internal/middleware"
	"github.com/toolntask/toolntask-api/internal/notify"
	"github.com/toolntask/toolntask-api/internal/ratelimit"
	"github.com/toolntask/toolntask-api/internal/repository"
	services "github.com/toolntask/toolntask-api/internal/service"
	"github.com/toolntask/toolntask-api/internal/utils"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	configs, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(configs.App.Env, configs.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !configs.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// init storage and identity provider
	var (
		repo     repository.Repository
		provider authprovider.Provider
	)
	switch configs.Storage.Driver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage and identity provider; data is lost on exit")
		repo = repository.NewMemoryRepository()
		provider = authprovider.NewMemory()
	default:
		fbClients, err := firebaseclient.NewFirebaseClients(ctx, configs.Firebase.CredentialsPath, configs.Firebase.ProjectID)
		if err != nil {
			logger.Fatal("failed to init firebase clients", zap.Error(err))
		}
		repo = repository.NewFirestoreRepository(fbClients.FirestoreClient)
		provider = authprovider.NewFirebase(fbClients.AuthClient)
	}
	defer repo.Close()

	// OTP cooldowns and attempt counters
	var limiter ratelimit.Limiter
	if configs.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     configs.Redis.Addr,
			Password: configs.Redis.Password,
			DB:       configs.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", configs.Redis.Addr), zap.Error(err))
		}
		limiter = ratelimit.NewRedisLimiter(rdb, "toolntask")
	} else {
		logger.Warn("redis not configured; OTP limits are per process")
		limiter = ratelimit.NewMemoryLimiter()
	}

	// notification transports
	var (
		sms  notify.SMSSender
		mail notify.Mailer
	)
	if configs.TwilioEnabled() {
		sms = notify.NewTwilioSender(configs.Twilio.AccountSID, configs.Twilio.AuthToken, configs.Twilio.PhoneNumber)
	}
	if configs.ResendEnabled() {
		mail = notify.NewResendMailer(configs.Resend.APIKey, configs.Resend.From)
	}
	dispatcher := notify.NewDispatcher(sms, mail, configs.Admin.Email, logger)

	// init services
	identityService := services.NewIdentityService(repo, provider, limiter, dispatcher, logger,
		services.WithBaseURL(configs.App.BaseURL))
	marketplaceService := services.NewMarketplaceService(repo, dispatcher, logger)

	// background workers; the store closes only after the janitor has stopped
	var workers sync.WaitGroup
	defer workers.Wait()
	workers.Add(1)
	go func() {
		defer workers.Done()
		janitor.New(repo, configs.Janitor.Interval, logger).Run(ctx)
	}()
	ipLimiter := middleware.NewIPRateLimiter(configs.Server.RateLimitPerMinute, logger)
	go ipLimiter.Cleanup(ctx)

	// start gin and attach routes
	handler := api.NewHandler(identityService, marketplaceService)
	engine, err := api.NewRouter(configs, handler, provider, ipLimiter, logger)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	if err := api.StartSafeServer(ctx, configs.Server.Port, engine, logger); err != nil {
		logger.Error("server error", zap.Error(err))
	}
	stop()
}
