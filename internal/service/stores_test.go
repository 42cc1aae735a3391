package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backend/internal/apperr"
	"backend/internal/game"
	"backend/internal/models"
)

// memRuns is an in-memory RunStore. The mutex plays the role of the per-run
// row lock: check-and-mark is one critical section, as in the real store.
type memRuns struct {
	mu   sync.Mutex
	runs map[string]*models.Run
}

func newMemRuns() *memRuns {
	return &memRuns{runs: make(map[string]*models.Run)}
}

func (m *memRuns) Create(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRuns) Consume(ctx context.Context, runID string, check func(*models.Run) error, finishedAt time.Time, finalScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return apperr.New(apperr.FailedPrecondition, "run not found")
	}
	snapshot := *run
	if err := check(&snapshot); err != nil {
		return err
	}
	run.Used = true
	run.FinishedAt = &finishedAt
	score := finalScore
	run.FinalScore = &score
	return nil
}

func (m *memRuns) get(runID string) *models.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		cp := *run
		return &cp
	}
	return nil
}

// memBoard is an in-memory LeaderboardStore with the same conditional upsert
// semantics as the PostgreSQL implementation. failUpserts makes the next N
// UpsertBest calls fail, for exercising the retry and Internal paths.
type memBoard struct {
	mu          sync.Mutex
	entries     map[string]*models.LeaderboardEntry
	failUpserts int
}

func newMemBoard() *memBoard {
	return &memBoard{entries: make(map[string]*models.LeaderboardEntry)}
}

func (m *memBoard) UpsertBest(ctx context.Context, owner, displayName string, score int, now time.Time) (*models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpserts > 0 {
		m.failUpserts--
		return nil, fmt.Errorf("simulated storage failure")
	}

	nowMillis := now.UnixMilli()
	entry, ok := m.entries[owner]
	if !ok {
		entry = &models.LeaderboardEntry{
			Owner:           owner,
			DisplayName:     displayName,
			BestScore:       score,
			UpdatedAt:       now,
			UpdatedAtMillis: nowMillis,
			OrderingKey:     game.OrderingKey(score, nowMillis),
		}
		m.entries[owner] = entry
	} else {
		entry.DisplayName = displayName
		entry.UpdatedAt = now
		if score > entry.BestScore {
			entry.BestScore = score
			entry.UpdatedAtMillis = nowMillis
			entry.OrderingKey = game.OrderingKey(score, nowMillis)
		}
	}

	cp := *entry
	return &cp, nil
}

func (m *memBoard) Entry(ctx context.Context, owner string) (*models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[owner]; ok {
		cp := *entry
		return &cp, nil
	}
	return nil, nil
}

func (m *memBoard) TopPage(ctx context.Context, pageSize int, after *game.Cursor) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.LeaderboardEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		all = append(all, *entry)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].OrderingKey != all[j].OrderingKey {
			return all[i].OrderingKey > all[j].OrderingKey
		}
		return all[i].Owner < all[j].Owner
	})

	page := make([]models.LeaderboardEntry, 0, pageSize)
	for _, entry := range all {
		if after != nil {
			if entry.OrderingKey > after.Key {
				continue
			}
			if entry.OrderingKey == after.Key && entry.Owner <= after.Owner {
				continue
			}
		}
		page = append(page, entry)
		if len(page) == pageSize {
			break
		}
	}
	return page, nil
}

func (m *memBoard) CountStrictlyAbove(ctx context.Context, key int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, entry := range m.entries {
		if entry.OrderingKey > key {
			count++
		}
	}
	return count, nil
}

// fakeClock is a settable clock shared with the service under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
