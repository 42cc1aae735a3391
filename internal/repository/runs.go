package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/apperr"
	"backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunRepository persists run tokens in PostgreSQL.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a fresh, unused run record.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Consume atomically checks and burns a run token. The run row is locked
// FOR UPDATE for the whole transaction, so concurrent submissions for the
// same run serialize: exactly one observes used=false and passes check, the
// rest see the consumed run. check receives the locked row and decides
// acceptance; any error it returns aborts the transaction untouched.
func (r *RunRepository) Consume(ctx context.Context, runID string, check func(*models.Run) error, finishedAt time.Time, finalScore int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var run models.Run
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", runID).
			First(&run).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.FailedPrecondition, "run not found")
		}
		if err != nil {
			return err
		}

		if err := check(&run); err != nil {
			return err
		}

		return tx.Model(&models.Run{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"used":        true,
				"finished_at": finishedAt,
				"final_score": finalScore,
			}).Error
	})
}
