package repository

import (
	"context"

	"backend/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the runs and leaderboard tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Run{}, &models.LeaderboardEntry{})
}

// PingPostgres checks if the database is reachable.
func PingPostgres(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ClosePostgres closes the underlying connection pool.
func ClosePostgres(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
