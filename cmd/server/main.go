package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	config "github.com/maheshrc27/dmflow/configs"
	"github.com/maheshrc27/dmflow/internal/api/handlers"
	"github.com/maheshrc27/dmflow/internal/api/middleware"
	"github.com/maheshrc27/dmflow/internal/database"
	"github.com/maheshrc27/dmflow/internal/graph"
	job "github.com/maheshrc27/dmflow/internal/jobs"
	"github.com/maheshrc27/dmflow/internal/queue"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	setupLogger(cfg.LogLevel)

	if cfg.SecretKey == "" {
		log.Fatalf("SECRET_KEY must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	graphClient := graph.NewClient(cfg.GraphBaseURL, nil)
	provider := graph.NewCredentialProvider(cfg.MetaAppID, cfg.MetaAppSecret, cfg.MetaRedirectURI, graphClient)

	var uploader service.MediaUploader
	if cfg.R2.Enabled() {
		r2Service, err := service.NewR2Service(ctx, cfg.R2)
		if err != nil {
			log.Fatalf("Failed to configure R2: %v", err)
		}
		uploader = r2Service
	} else {
		slog.Info("R2 is not configured, local media paths are stored as given")
	}

	accountRepo := repository.NewAccountRepository(db)
	configRepo := repository.NewConfigRepository(db)
	flowRepo := repository.NewFlowRepository(db)
	postRepo := repository.NewScheduledPostRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	accountService := service.NewAccountService(db, accountRepo, configRepo, provider, graphClient, cfg.SecretKey)
	flowService := service.NewFlowService(flowRepo)
	postService := service.NewPostService(postRepo, uploader)
	settingsService := service.NewSettingsService(configRepo)
	activityService := service.NewActivityService(messageRepo, flowRepo, postRepo)

	// queue
	var (
		queueClient *queue.Client
		asynqServer *asynq.Server
		enqueuer    job.Enqueuer
		redisOpt    asynq.RedisConnOpt
	)
	if cfg.RedisURI != "" {
		redisOpt, err = queue.RedisOpt(cfg.RedisURI)
		if err != nil {
			log.Fatalf("Invalid REDIS_URI: %v", err)
		}
		queueClient = queue.NewClient(asynq.NewClient(redisOpt))
		defer queueClient.Close()
		enqueuer = queueClient
	}

	// jobs
	dispatchJob := job.NewDispatchJob(accountService, settingsService, messageRepo, graphClient, cfg.DispatchBatchSize)
	pollerJob := job.NewPollerJob(accountService, settingsService, flowRepo, messageRepo, graphClient, dispatchJob)
	publishJob := job.NewPublishJob(accountService, postRepo, flowRepo, graphClient, enqueuer, job.PublishOptions{
		PollTries:  cfg.ContainerPollTries,
		PollDelay:  cfg.ContainerPollDelay,
		StaleAfter: cfg.StaleProcessingAfter,
	})
	refreshTokenJob := job.NewTokenRefreshJob(accountService)

	runner := job.NewRunner(ctx)
	for _, schedule := range []struct {
		interval time.Duration
		name     string
		fn       func(context.Context)
	}{
		{cfg.PollInterval, "poller", pollerJob.Run},
		{cfg.PublishInterval, "publish", publishJob.Run},
		{cfg.TokenRefreshInterval, "token_refresh", refreshTokenJob.RefreshTokens},
	} {
		if err := runner.Every(schedule.interval, schedule.name, schedule.fn); err != nil {
			log.Fatalf("Failed to schedule job: %v", err)
		}
	}
	runner.Go("stale_sweep", publishJob.RecoverStale)
	runner.Start()

	if cfg.RedisURI != "" {
		worker := queue.NewQueue(publishJob)
		asynqServer = queue.NewServer(redisOpt, cfg.WorkerConcurrency)

		go func() {
			slog.Info("Starting the Asynq server...")
			if err := asynqServer.Run(worker.ServeMux()); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, accountService, provider)
	app.Get("/auth/callback", auth.Callback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/connect", auth.Connect)

	accounts := handlers.NewAccountHandler(accountService)
	api.Get("/accounts", accounts.ListAccounts)
	api.Post("/accounts/token", accounts.ConnectToken)
	api.Post("/accounts/switch", accounts.SwitchAccount)
	api.Post("/accounts/remove", accounts.RemoveAccount)
	api.Post("/accounts/verify", accounts.VerifyAccount)
	api.Get("/media", accounts.ListMedia)

	flows := handlers.NewFlowHandler(flowService)
	api.Get("/flows", flows.ListFlows)
	api.Post("/flows", flows.SaveFlow)
	api.Post("/flows/toggle", flows.ToggleFlow)
	api.Post("/flows/remove", flows.RemoveFlow)

	posts := handlers.NewPostHandler(postService, cfg.UploadDir)
	api.Get("/posts", posts.ListPosts)
	api.Post("/posts", posts.CreatePost)
	api.Post("/posts/update", posts.UpdatePost)
	api.Post("/posts/remove", posts.RemovePost)

	activity := handlers.NewActivityHandler(activityService)
	api.Get("/messages", activity.ListMessages)
	api.Get("/stats", activity.Stats)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings", settings.GetSettings)
	api.Post("/settings", settings.UpdateSetting)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("Server is running", "addr", cfg.ListenAddr)

	gracefulShutdown(app, cancel, runner, asynqServer)
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func closeDB(db *sqlx.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, cancel context.CancelFunc, runner *job.Runner, asynqServer *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}

	cancel()
	runner.Stop()
	if asynqServer != nil {
		asynqServer.Shutdown()
	}

	slog.Info("Server shutdown complete.")
}
