package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"backend/internal/config"
	"backend/internal/game"
	"backend/internal/models"
	"backend/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	TotalPlayers = 10000
	BatchSize    = 500
	MaxSeedScore = 5000
	OwnerPrefix  = "seed_player_"
)

func main() {
	log.Println("Starting leaderboard seeder...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize PostgreSQL
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
	boardRepo := repository.NewLeaderboardRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient)

	// Run migrations
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	ctx := context.Background()

	log.Printf("Generating %d leaderboard entries...", TotalPlayers)
	entries := generateEntries(TotalPlayers)

	log.Println("Inserting entries into PostgreSQL...")
	startTime := time.Now()
	if err := boardRepo.BulkInsert(ctx, entries, BatchSize); err != nil {
		log.Fatalf("Failed to seed PostgreSQL: %v", err)
	}
	log.Printf("   ✓ Inserted %d entries in %v", len(entries), time.Since(startTime))

	log.Println("Populating Redis mirror...")
	startTime = time.Now()
	if err := redisRepo.BulkMirror(ctx, entries); err != nil {
		log.Fatalf("Failed to seed Redis: %v", err)
	}
	log.Printf("   ✓ Mirrored %d entries in %v", len(entries), time.Since(startTime))

	// Verify seeding
	total, err := boardRepo.Total(ctx)
	if err != nil {
		log.Fatalf("Failed to verify PostgreSQL: %v", err)
	}
	mirrored, err := redisRepo.TotalMirrored(ctx)
	if err != nil {
		log.Fatalf("Failed to verify Redis: %v", err)
	}

	log.Printf("✅ Seeding completed: PostgreSQL=%d entries, Redis mirror=%d entries", total, mirrored)

	// Show sample of top 10
	log.Println("\nTop 10 players:")
	top, err := boardRepo.TopPage(ctx, 10, nil)
	if err != nil {
		log.Fatalf("Failed to get top players: %v", err)
	}
	for i, entry := range top {
		log.Printf("   %d. %s - Score: %d", i+1, entry.DisplayName, entry.BestScore)
	}

	// Close connections
	repository.ClosePostgres(db)
	redisRepo.Close()

	log.Println("\nSeeder finished")
}

// generateEntries creates random leaderboard entries with staggered
// timestamps so equal scores still get distinct ordering keys.
func generateEntries(count int) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, count)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	base := time.Now().Add(-time.Duration(count) * time.Millisecond)

	for i := 0; i < count; i++ {
		score := rng.Intn(MaxSeedScore + 1)
		at := base.Add(time.Duration(i) * time.Millisecond)
		millis := at.UnixMilli()

		entries[i] = models.LeaderboardEntry{
			Owner:           fmt.Sprintf("%s%d", OwnerPrefix, i+1),
			DisplayName:     fmt.Sprintf("Player %d", i+1),
			BestScore:       score,
			UpdatedAt:       at,
			UpdatedAtMillis: millis,
			OrderingKey:     game.OrderingKey(score, millis),
		}
	}

	return entries
}

// initPostgres initializes PostgreSQL connection
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

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     50,
		MinIdleConns: 10,
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
