package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"backend/internal/game"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Game     GameConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int
}

// AuthConfig holds the JWT verification settings for the identity boundary.
type AuthConfig struct {
	JWTSecret string
}

// GameConfig holds the anti-cheat caps and read-path limits. All values are
// fixed at deploy time.
type GameConfig struct {
	MaxPointsPerSecond int
	MinPlayMS          int64
	MaxRunMS           int64
	MaxScoreAbs        int
	PageSizeDefault    int
	PageSizeMax        int
	RankPollWindowMS   int64
	SimulatorEnabled   bool
}

// Rules converts the configured caps into the validation rule set.
func (g GameConfig) Rules() game.Rules {
	return game.Rules{
		MaxPointsPerSecond: g.MaxPointsPerSecond,
		MinPlayMS:          g.MinPlayMS,
		MaxRunMS:           g.MaxRunMS,
		MaxScoreAbs:        g.MaxScoreAbs,
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "leaderboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Username: getEnv("REDIS_USERNAME", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port: getEnvAsInt("BACKEND_PORT", 8000),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Game: GameConfig{
			MaxPointsPerSecond: getEnvAsInt("MAX_POINTS_PER_SECOND", 40),
			MinPlayMS:          getEnvAsInt64("MIN_PLAY_MS", 2000),
			MaxRunMS:           getEnvAsInt64("MAX_RUN_MS", 15*60*1000),
			MaxScoreAbs:        getEnvAsInt("MAX_SCORE_ABS", 500000),
			PageSizeDefault:    getEnvAsInt("PAGE_SIZE_DEFAULT", 50),
			PageSizeMax:        getEnvAsInt("PAGE_SIZE_MAX", 100),
			RankPollWindowMS:   getEnvAsInt64("RANK_POLL_WINDOW_MS", 2000),
			SimulatorEnabled:   getEnvAsBool("SIMULATOR_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	g := c.Game
	if g.MaxScoreAbs > game.MaxEncodableScore {
		return fmt.Errorf("MAX_SCORE_ABS %d exceeds ordering key capacity %d", g.MaxScoreAbs, game.MaxEncodableScore)
	}
	if g.MaxPointsPerSecond <= 0 || g.MaxScoreAbs <= 0 {
		return fmt.Errorf("score caps must be positive")
	}
	if g.MinPlayMS < 0 || g.MaxRunMS <= g.MinPlayMS {
		return fmt.Errorf("invalid run duration window [%d, %d]", g.MinPlayMS, g.MaxRunMS)
	}
	if g.PageSizeDefault <= 0 || g.PageSizeMax < g.PageSizeDefault {
		return fmt.Errorf("invalid page size limits")
	}
	return nil
}

// GetDSN returns the PostgreSQL DSN
func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as an int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
