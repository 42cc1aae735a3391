package service

import (
	"context"
	"log"
	"time"

	"backend/internal/apperr"
	"backend/internal/game"
	"backend/internal/models"
	"backend/internal/worker"

	"github.com/google/uuid"
)

// RunStore is the persistence contract for run tokens.
type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
	Consume(ctx context.Context, runID string, check func(*models.Run) error, finishedAt time.Time, finalScore int) error
}

// LeaderboardStore is the persistence contract for personal bests and the
// ranked read path.
type LeaderboardStore interface {
	UpsertBest(ctx context.Context, owner, displayName string, score int, now time.Time) (*models.LeaderboardEntry, error)
	Entry(ctx context.Context, owner string) (*models.LeaderboardEntry, error)
	TopPage(ctx context.Context, pageSize int, after *game.Cursor) ([]models.LeaderboardEntry, error)
	CountStrictlyAbove(ctx context.Context, key int64) (int64, error)
}

// SubmissionService issues run tokens and validates score submissions
// against them.
type SubmissionService struct {
	runs   RunStore
	board  LeaderboardStore
	mirror *worker.WorkerPool // nil disables mirroring
	rules  game.Rules
	now    func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(runs RunStore, board LeaderboardStore, mirror *worker.WorkerPool, rules game.Rules) *SubmissionService {
	return &SubmissionService{
		runs:   runs,
		board:  board,
		mirror: mirror,
		rules:  rules,
		now:    time.Now,
	}
}

// StartRun mints a one-time run token for the caller, anchored to the server
// clock. Each call is independent; no prior run state is read or mutated.
func (s *SubmissionService) StartRun(ctx context.Context, caller string) (*models.StartRunResponse, error) {
	if caller == "" {
		return nil, apperr.New(apperr.Unauthenticated, "sign-in required")
	}

	now := s.now().UTC()
	run := &models.Run{
		// UUIDv4 from crypto/rand: the token is the sole capability
		// granting one scored submission, so it must be unguessable.
		ID:        uuid.NewString(),
		Owner:     caller,
		CreatedAt: now,
		Used:      false,
	}

	if err := s.runs.Create(ctx, run); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create run", err)
	}

	return &models.StartRunResponse{
		RunID:      run.ID,
		ServerTime: now.UnixMilli(),
	}, nil
}

// SubmitScore validates a submission and, on acceptance, records it as the
// caller's best. The checks run in a fixed order and the first failure wins;
// every rejection is terminal for this attempt. Burning the run token and
// the acceptance checks happen in one per-run transaction, so a replayed
// run ID is rejected no matter how the two attempts interleave.
func (s *SubmissionService) SubmitScore(ctx context.Context, caller, runID string, score int, displayName string) error {
	if caller == "" {
		return apperr.New(apperr.Unauthenticated, "sign-in required")
	}
	if runID == "" {
		return apperr.New(apperr.InvalidArgument, "missing run id")
	}
	if err := s.rules.CheckScore(score); err != nil {
		return err
	}
	name, err := s.rules.CheckDisplayName(displayName)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	err = s.runs.Consume(ctx, runID, func(run *models.Run) error {
		if run.Owner != caller {
			return apperr.New(apperr.PermissionDenied, "wrong owner")
		}
		if run.Used {
			return apperr.New(apperr.FailedPrecondition, "run already used")
		}
		elapsed := now.Sub(run.CreatedAt)
		if err := s.rules.CheckDuration(elapsed); err != nil {
			return err
		}
		return s.rules.CheckRate(score, elapsed)
	}, now, score)
	if err != nil {
		return apperr.From(err)
	}

	// The token is burned from here on. The upsert is deterministic given
	// (owner, score, name, now), so one retry cannot double-apply.
	entry, err := s.board.UpsertBest(ctx, caller, name, score, now)
	if err != nil {
		entry, err = s.board.UpsertBest(ctx, caller, name, score, now)
	}
	if err != nil {
		// The player's token is gone but the score was not recorded.
		// Surfaced, never swallowed: the client must not assume credit.
		log.Printf("❌ run %s consumed but leaderboard write failed for %s: %v", runID, caller, err)
		return apperr.Wrap(apperr.Internal, "score accepted but not recorded", err)
	}

	if s.mirror != nil {
		// Best-effort; backpressure drops are logged by the pool.
		_ = s.mirror.Submit(worker.MirrorTask{Entry: *entry})
	}

	return nil
}
