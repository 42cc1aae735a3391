package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/game"
	"backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardRepository persists personal bests in PostgreSQL and serves the
// ranked read path.
type LeaderboardRepository struct {
	db *gorm.DB
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// UpsertBest records an accepted score for owner as a single atomic
// INSERT ... ON CONFLICT statement, so concurrent submissions by the same
// owner cannot lose updates. The display name and updated_at always refresh;
// best_score, updated_at_millis and ordering_key only move when the new
// score beats the stored best. Returns the row as stored, which may still
// carry an older, higher best.
func (r *LeaderboardRepository) UpsertBest(ctx context.Context, owner, displayName string, score int, now time.Time) (*models.LeaderboardEntry, error) {
	nowMillis := now.UnixMilli()
	entry := models.LeaderboardEntry{
		Owner:           owner,
		DisplayName:     displayName,
		BestScore:       score,
		UpdatedAt:       now,
		UpdatedAtMillis: nowMillis,
		OrderingKey:     game.OrderingKey(score, nowMillis),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"display_name": displayName,
			"updated_at":   now,
			"best_score":   gorm.Expr("GREATEST(leaderboard_entries.best_score, EXCLUDED.best_score)"),
			"updated_at_millis": gorm.Expr(
				"CASE WHEN EXCLUDED.best_score > leaderboard_entries.best_score THEN EXCLUDED.updated_at_millis ELSE leaderboard_entries.updated_at_millis END"),
			"ordering_key": gorm.Expr(
				"CASE WHEN EXCLUDED.best_score > leaderboard_entries.best_score THEN EXCLUDED.ordering_key ELSE leaderboard_entries.ordering_key END"),
		}),
	}, clause.Returning{}).Create(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Entry fetches the stored entry for owner, or nil when the owner has never
// had a submission accepted.
func (r *LeaderboardRepository) Entry(ctx context.Context, owner string) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := r.db.WithContext(ctx).Where("owner = ?", owner).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// TopPage returns up to pageSize entries ordered by ordering key descending,
// starting strictly after the cursor when one is given. Keyset pagination
// only; the owner column breaks ordering-key ties deterministically.
func (r *LeaderboardRepository) TopPage(ctx context.Context, pageSize int, after *game.Cursor) ([]models.LeaderboardEntry, error) {
	q := r.db.WithContext(ctx).
		Order("ordering_key DESC, owner ASC").
		Limit(pageSize)
	if after != nil {
		q = q.Where("ordering_key < ? OR (ordering_key = ? AND owner > ?)",
			after.Key, after.Key, after.Owner)
	}

	var entries []models.LeaderboardEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountStrictlyAbove returns how many entries outrank the given ordering
// key. Rank is this count plus one.
func (r *LeaderboardRepository) CountStrictlyAbove(ctx context.Context, key int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LeaderboardEntry{}).
		Where("ordering_key > ?", key).
		Count(&count).Error
	return count, err
}

// Total returns the number of ranked players.
func (r *LeaderboardRepository) Total(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LeaderboardEntry{}).Count(&count).Error
	return count, err
}

// BulkInsert efficiently inserts entries in batches, skipping owners that
// already exist. Used by the seeder.
func (r *LeaderboardRepository) BulkInsert(ctx context.Context, entries []models.LeaderboardEntry, batchSize int) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		DoNothing: true,
	}).CreateInBatches(entries, batchSize).Error
}
