package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/internal/api/handlers"
	"backend/internal/api/middleware"
	"backend/internal/config"
	"backend/internal/jobs"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Initialize PostgreSQL with connection pooling
	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Connected to Redis")

	// Initialize repositories
	runRepo := repository.NewRunRepository(db)
	boardRepo := repository.NewLeaderboardRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)

	// Run migrations
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	// Worker pool applies Redis mirror writes off the submission path
	workerPool := worker.NewWorkerPool(10, 1000, redisRepo)
	workerPool.Start()

	// WebSocket hub broadcasts leaderboard version heartbeats
	hub := websocket.NewHub(redisRepo)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Services
	rules := cfg.Game.Rules()
	submissions := service.NewSubmissionService(runRepo, boardRepo, workerPool, rules)
	ranks := service.NewRankService(boardRepo, cfg.Game.PageSizeDefault, cfg.Game.PageSizeMax)

	// Demo traffic simulator (disabled unless configured)
	var simulator *jobs.Simulator
	if cfg.Game.SimulatorEnabled {
		simulator = jobs.NewSimulator(submissions, rules, jobs.SimulatorConfig{})
		simCtx, simCancel := context.WithCancel(context.Background())
		defer simCancel()
		if err := simulator.Start(simCtx); err != nil {
			log.Printf("⚠️ Failed to start simulator: %v", err)
		}
	}

	// Handlers
	healthCheck := func(ctx context.Context) error {
		if err := repository.PingPostgres(ctx, db); err != nil {
			return fmt.Errorf("PostgreSQL health check failed: %w", err)
		}
		if err := redisRepo.Ping(ctx); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
		return nil
	}
	handler := handlers.New(
		submissions,
		ranks,
		redisRepo,
		time.Duration(cfg.Game.RankPollWindowMS)*time.Millisecond,
		healthCheck,
	)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Quiz Leaderboard API",
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")
	authed := middleware.RequireAuth(cfg.Auth.JWTSecret)

	api.Post("/runs", authed, handler.StartRun)
	api.Post("/scores", authed, handler.SubmitScore)
	api.Get("/rank/me", authed, handler.MyRank)
	api.Get("/leaderboard", handler.Leaderboard)
	api.Get("/health", handler.HealthCheck)

	// WebSocket route with upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", fiberws.New(func(c *fiberws.Conn) {
		websocket.ServeWS(hub, c)
	}))

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Quiz Leaderboard API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/runs",
				"POST /api/v1/scores",
				"GET /api/v1/rank/me",
				"GET /api/v1/leaderboard",
				"GET /api/v1/health",
				"WS /ws (WebSocket)",
			},
			"websocket_clients": hub.GetClientCount(),
		})
	})

	// Graceful shutdown with worker pool flushing
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		if simulator != nil {
			simulator.Stop()
		}

		// Stop accepting new HTTP requests
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}

		// Drain pending mirror writes
		if err := workerPool.Shutdown(30 * time.Second); err != nil {
			log.Printf("Worker pool shutdown error: %v", err)
		}

		hubCancel()

		if err := repository.ClosePostgres(db); err != nil {
			log.Printf("Error closing PostgreSQL: %v", err)
		}
		if err := redisRepo.Close(); err != nil {
			log.Printf("Error closing Redis: %v", err)
		}

		log.Println("✓ Server shutdown complete")
	}()

	// Start server
	port := cfg.Server.Port
	log.Printf("Server starting on port %d...", port)
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initPostgres initializes PostgreSQL connection with connection pooling
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Submission transactions hold row locks briefly; keep enough
	// connections for the HTTP handlers plus the mirror workers.
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// initRedis initializes Redis connection with connection pooling
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
