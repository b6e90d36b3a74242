package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/asadurzzaman/social-media-post-scheduling-tools/configs"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/api"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/api/handlers"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/api/middleware"
	job "github.com/asadurzzaman/social-media-post-scheduling-tools/internal/jobs"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/platform"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/queue"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository/memory"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

type repositories struct {
	posts    repository.PostRepository
	rules    repository.RecurringPostRepository
	accounts repository.SocialAccountRepository
	history  repository.PostingHistoryRepository
	drafts   repository.DraftRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if len(cfg.SecretKey) != 32 {
		log.Fatalf("SECRET_KEY must be 32 bytes long, got %d", len(cfg.SecretKey))
	}

	var db *sql.DB
	var repos repositories
	store := memory.New()

	if cfg.PostgresURI != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("Database is unreachable: %v", err)
		}

		repos = repositories{
			posts:    repository.NewPostRepository(db),
			rules:    repository.NewRecurringPostRepository(db),
			accounts: repository.NewSocialAccountRepository(db),
			history:  repository.NewPostingHistoryRepository(db),
			drafts:   store.Drafts(),
		}
	} else {
		slog.Warn("POSTGRES_URI is empty, keeping all data in memory")
		repos = repositories{
			posts:    store.Posts(),
			rules:    store.RecurringPosts(),
			accounts: store.SocialAccounts(),
			history:  store.PostingHistory(),
			drafts:   store.Drafts(),
		}
	}

	var rdb *redis.Client
	var asynqClient *asynq.Client
	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	if cfg.RedisURI != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		repos.drafts = repository.NewDraftRepository(rdb, cfg.DraftTTL)
		asynqClient = asynq.NewClient(redisConn)
	} else {
		slog.Warn("REDIS_URI is empty, drafts stay in memory and posts wait for the sweep")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	httpClient := &http.Client{Timeout: cfg.PublishTimeout}
	registry := platform.NewRegistry(
		platform.NewFacebook(httpClient, cfg.Platforms.FacebookURL),
		platform.NewInstagram(httpClient, cfg.Platforms.InstagramURL),
		platform.NewLinkedIn(httpClient, cfg.Platforms.LinkedInURL),
	)
	cipher := utils.NewTokenCipher(cfg.SecretKey)

	var blobs service.BlobStore
	if cfg.R2.AccountID != "" {
		r2Service, err := service.NewR2Service(context.Background(), cfg.R2)
		if err != nil {
			log.Fatalf("Failed to configure R2: %v", err)
		}
		blobs = r2Service
	} else {
		slog.Warn("R2 is not configured, media uploads are disabled")
	}

	var enqueuer service.PostEnqueuer
	if asynqClient != nil {
		enqueuer = queue.NewQueue(asynqClient)
	}

	tokenService := service.NewTokenService(repos.accounts, nil)
	dispatchService := service.NewDispatchService(repos.posts, repos.accounts, repos.history, tokenService, registry, cipher, metrics, service.DispatchOptions{
		MaxAttempts: cfg.PublishAttempts,
		BaseDelay:   cfg.PublishBaseDelay,
		Timeout:     cfg.PublishTimeout,
	})
	schedulerService := service.NewSchedulerService(repos.posts, repos.rules, dispatchService, metrics, service.SchedulerOptions{
		Concurrency: cfg.DispatchConcurrency,
		BatchSize:   cfg.SweepBatchSize,
		StaleAfter:  service.StaleClaimAfter(cfg.PublishAttempts, cfg.PublishTimeout, cfg.PublishBaseDelay),
	})
	postService := service.NewPostService(repos.posts, repos.accounts, enqueuer, service.PostOptions{
		ConflictScope:  cfg.ConflictScope,
		ConflictWindow: cfg.ConflictWindow,
	})
	recurringService := service.NewRecurringService(repos.rules, repos.accounts)
	accountService := service.NewAccountService(repos.accounts, registry, cipher, utils.RetryPolicy{})
	draftService := service.NewDraftService(repos.drafts)
	mediaService := service.NewMediaService(blobs)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api.RegisterRoutes(app, authMiddleware.AuthMiddleware(), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), api.Handlers{
		Post:      handlers.NewPostHandler(postService, schedulerService),
		Publish:   handlers.NewPublishHandler(schedulerService),
		Recurring: handlers.NewRecurringHandler(recurringService),
		Account:   handlers.NewAccountHandler(accountService),
		Draft:     handlers.NewDraftHandler(draftService),
		Media:     handlers.NewMediaHandler(mediaService),
	})

	// cron jobs
	sweepJob := job.NewSweepJob(schedulerService)
	tokenExpiryJob := job.NewTokenExpiryJob(tokenService, metrics)

	c := cron.New()
	if err := c.AddFunc(cfg.SweepSchedule, sweepJob.Sweep); err != nil {
		log.Fatalf("Invalid SWEEP_SCHEDULE %q: %v", cfg.SweepSchedule, err)
	}
	if err := c.AddFunc(cfg.TokenCheckSchedule, tokenExpiryJob.FlagExpiredTokens); err != nil {
		log.Fatalf("Invalid TOKEN_CHECK_SCHEDULE %q: %v", cfg.TokenCheckSchedule, err)
	}
	c.Start()

	var asynqServer *asynq.Server
	if asynqClient != nil {
		asynqServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
		})
		worker := queue.NewWorker(repos.posts, dispatchService)

		go func() {
			log.Println("Starting the Asynq server...")
			if err := asynqServer.Run(worker.Mux()); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, c, asynqServer, asynqClient, rdb, db)
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, server *asynq.Server, client *asynq.Client, rdb *redis.Client, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	if server != nil {
		server.Shutdown()
	}
	if client != nil {
		if err := client.Close(); err != nil {
			slog.Warn("error closing asynq client", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Warn("error closing redis client", "error", err)
		}
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
