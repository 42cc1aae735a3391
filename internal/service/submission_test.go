package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"backend/internal/apperr"
	"backend/internal/game"
)

func testRules() game.Rules {
	return game.Rules{
		MaxPointsPerSecond: 40,
		MinPlayMS:          2000,
		MaxRunMS:           15 * 60 * 1000,
		MaxScoreAbs:        500000,
	}
}

func newTestSubmissionService() (*SubmissionService, *memRuns, *memBoard, *fakeClock) {
	runs := newMemRuns()
	board := newMemBoard()
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	svc := NewSubmissionService(runs, board, nil, testRules())
	svc.now = clock.Now
	return svc, runs, board, clock
}

func wantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("got nil error, want code %s", code)
	}
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("got code %s (%v), want %s", got, err, code)
	}
}

func TestStartRunRequiresCaller(t *testing.T) {
	svc, _, _, _ := newTestSubmissionService()

	_, err := svc.StartRun(context.Background(), "")
	wantCode(t, err, apperr.Unauthenticated)
}

func TestStartRunCreatesUnusedRun(t *testing.T) {
	svc, runs, _, clock := newTestSubmissionService()

	resp, err := svc.StartRun(context.Background(), "ava-uid")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("StartRun returned empty run ID")
	}
	if resp.ServerTime != clock.Now().UnixMilli() {
		t.Errorf("ServerTime = %d, want %d", resp.ServerTime, clock.Now().UnixMilli())
	}

	run := runs.get(resp.RunID)
	if run == nil {
		t.Fatal("run not persisted")
	}
	if run.Used || run.Owner != "ava-uid" {
		t.Errorf("run = %+v, want unused and owned by ava-uid", run)
	}

	// Tokens must be unique per call
	resp2, err := svc.StartRun(context.Background(), "ava-uid")
	if err != nil {
		t.Fatalf("second StartRun: %v", err)
	}
	if resp2.RunID == resp.RunID {
		t.Error("two runs share the same ID")
	}
}

func TestSubmitScoreEndToEnd(t *testing.T) {
	svc, runs, board, clock := newTestSubmissionService()
	ctx := context.Background()

	resp, err := svc.StartRun(ctx, "ava-uid")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	// 3s of play at 40 points/sec allows up to 120 points
	clock.Advance(3 * time.Second)
	if err := svc.SubmitScore(ctx, "ava-uid", resp.RunID, 100, "Ava"); err != nil {
		t.Fatalf("SubmitScore: %v", err)
	}

	entry, err := board.Entry(ctx, "ava-uid")
	if err != nil || entry == nil {
		t.Fatalf("Entry = (%v, %v), want stored entry", entry, err)
	}
	if entry.BestScore != 100 || entry.DisplayName != "Ava" {
		t.Errorf("entry = %+v, want bestScore=100 displayName=Ava", entry)
	}
	if entry.OrderingKey != game.OrderingKey(100, entry.UpdatedAtMillis) {
		t.Errorf("ordering key %d not derived from (100, %d)", entry.OrderingKey, entry.UpdatedAtMillis)
	}

	run := runs.get(resp.RunID)
	if run == nil || !run.Used {
		t.Fatalf("run = %+v, want used", run)
	}
	if run.FinalScore == nil || *run.FinalScore != 100 {
		t.Errorf("run.FinalScore = %v, want 100", run.FinalScore)
	}

	// Replaying the consumed token is always rejected
	err = svc.SubmitScore(ctx, "ava-uid", resp.RunID, 90, "Ava")
	wantCode(t, err, apperr.FailedPrecondition)
	if !strings.Contains(err.Error(), "already used") {
		t.Errorf("replay error = %v, want run already used", err)
	}
}

func TestSubmitScoreRejections(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService()
	ctx := context.Background()

	started, err := svc.StartRun(ctx, "ava-uid")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	clock.Advance(3 * time.Second)

	tests := []struct {
		name        string
		caller      string
		runID       string
		score       int
		displayName string
		code        apperr.Code
	}{
		{"no caller", "", started.RunID, 100, "Ava", apperr.Unauthenticated},
		{"missing run id", "ava-uid", "", 100, "Ava", apperr.InvalidArgument},
		{"negative score", "ava-uid", started.RunID, -1, "Ava", apperr.InvalidArgument},
		{"score above ceiling", "ava-uid", started.RunID, 500001, "Ava", apperr.InvalidArgument},
		{"short name", "ava-uid", started.RunID, 100, " a ", apperr.InvalidArgument},
		{"unknown run", "ava-uid", "no-such-run", 100, "Ava", apperr.FailedPrecondition},
		{"wrong owner", "mallory-uid", started.RunID, 100, "Mallory", apperr.PermissionDenied},
		{"rate exceeded", "ava-uid", started.RunID, 121, "Ava", apperr.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SubmitScore(ctx, tt.caller, tt.runID, tt.score, tt.displayName)
			wantCode(t, err, tt.code)
		})
	}

	// All rejections above left the token intact; a valid submission still works
	if err := svc.SubmitScore(ctx, "ava-uid", started.RunID, 100, "Ava"); err != nil {
		t.Fatalf("valid submission after rejections: %v", err)
	}
}

func TestSubmitScoreDurationBounds(t *testing.T) {
	svc, _, _, clock := newTestSubmissionService()
	ctx := context.Background()

	// Too fast
	early, _ := svc.StartRun(ctx, "ava-uid")
	clock.Advance(time.Second)
	err := svc.SubmitScore(ctx, "ava-uid", early.RunID, 10, "Ava")
	wantCode(t, err, apperr.FailedPrecondition)

	// Too slow
	late, _ := svc.StartRun(ctx, "ava-uid")
	clock.Advance(16 * time.Minute)
	err = svc.SubmitScore(ctx, "ava-uid", late.RunID, 10, "Ava")
	wantCode(t, err, apperr.FailedPrecondition)
}

func TestSubmitScoreNameRefreshOnLowerScore(t *testing.T) {
	svc, _, board, clock := newTestSubmissionService()
	ctx := context.Background()

	first, _ := svc.StartRun(ctx, "ava-uid")
	clock.Advance(3 * time.Second)
	if err := svc.SubmitScore(ctx, "ava-uid", first.RunID, 100, "Ava"); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	before, _ := board.Entry(ctx, "ava-uid")

	second, _ := svc.StartRun(ctx, "ava-uid")
	clock.Advance(3 * time.Second)
	if err := svc.SubmitScore(ctx, "ava-uid", second.RunID, 50, "AvaRenamed"); err != nil {
		t.Fatalf("second submission: %v", err)
	}

	after, _ := board.Entry(ctx, "ava-uid")
	if after.DisplayName != "AvaRenamed" {
		t.Errorf("displayName = %q, want AvaRenamed", after.DisplayName)
	}
	if after.BestScore != 100 {
		t.Errorf("bestScore = %d, want 100 (lower score must not lower the best)", after.BestScore)
	}
	if after.OrderingKey != before.OrderingKey {
		t.Errorf("orderingKey changed %d -> %d on a non-improving score", before.OrderingKey, after.OrderingKey)
	}
}

func TestSubmitScoreConcurrentReplay(t *testing.T) {
	svc, _, board, clock := newTestSubmissionService()
	ctx := context.Background()

	started, _ := svc.StartRun(ctx, "ava-uid")
	clock.Advance(3 * time.Second)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.SubmitScore(ctx, "ava-uid", started.RunID, 100, "Ava")
		}(i)
	}
	wg.Wait()

	var accepted, rejected int
	for _, err := range errs {
		if err == nil {
			accepted++
		} else if apperr.CodeOf(err) == apperr.FailedPrecondition {
			rejected++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || rejected != 1 {
		t.Fatalf("accepted=%d rejected=%d, want exactly one of each", accepted, rejected)
	}

	entry, _ := board.Entry(ctx, "ava-uid")
	if entry == nil || entry.BestScore != 100 {
		t.Fatalf("entry = %+v, want single recorded best of 100", entry)
	}
}

func TestSubmitScoreUpsertRetry(t *testing.T) {
	svc, _, board, clock := newTestSubmissionService()
	ctx := context.Background()

	// One transient failure: the bounded retry saves the submission
	started, _ := svc.StartRun(ctx, "ava-uid")
	clock.Advance(3 * time.Second)
	board.failUpserts = 1
	if err := svc.SubmitScore(ctx, "ava-uid", started.RunID, 100, "Ava"); err != nil {
		t.Fatalf("SubmitScore with one transient failure: %v", err)
	}
	entry, _ := board.Entry(ctx, "ava-uid")
	if entry == nil || entry.BestScore != 100 {
		t.Fatalf("entry = %+v, want recorded best of 100", entry)
	}
}

func TestSubmitScoreBurnedTokenOnPersistentFailure(t *testing.T) {
	svc, runs, board, clock := newTestSubmissionService()
	ctx := context.Background()

	started, _ := svc.StartRun(ctx, "ava-uid")
	clock.Advance(3 * time.Second)

	board.failUpserts = 2
	err := svc.SubmitScore(ctx, "ava-uid", started.RunID, 100, "Ava")
	wantCode(t, err, apperr.Internal)

	// The token is burned even though the score was not recorded; retries
	// with the same run must fail, not double-apply.
	run := runs.get(started.RunID)
	if run == nil || !run.Used {
		t.Fatalf("run = %+v, want used after failed leaderboard write", run)
	}
	err = svc.SubmitScore(ctx, "ava-uid", started.RunID, 100, "Ava")
	wantCode(t, err, apperr.FailedPrecondition)
}
