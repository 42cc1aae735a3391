package jobs

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"backend/internal/game"
	"backend/internal/service"
)

// pendingRun is a started synthetic run waiting out its play time.
type pendingRun struct {
	caller  string
	runID   string
	started time.Time
	due     time.Time
}

// Simulator generates demo traffic by driving synthetic players through the
// real startRun -> submitScore pipeline. Every submission passes the same
// validation as a real client, so it doubles as a continuous smoke test of
// the anti-cheat path.
type Simulator struct {
	service *service.SubmissionService
	rules   game.Rules

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// Metrics
	started   atomic.Int64
	submitted atomic.Int64
	rejected  atomic.Int64
	startTime time.Time

	// Configuration
	players      int
	tickInterval time.Duration
	playDuration time.Duration
	maxScore     int

	pending []pendingRun
	rng     *rand.Rand
}

// SimulatorConfig holds configuration for the simulator
type SimulatorConfig struct {
	Players      int           // Number of synthetic identities
	TickInterval time.Duration // How often to start a new run
	PlayDuration time.Duration // How long each synthetic run plays
	MaxScore     int           // Upper bound on generated scores
}

// NewSimulator creates a new demo traffic simulator
func NewSimulator(svc *service.SubmissionService, rules game.Rules, config SimulatorConfig) *Simulator {
	// Apply defaults
	if config.Players == 0 {
		config.Players = 25
	}
	if config.TickInterval == 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.PlayDuration == 0 {
		// Just past the minimum so submissions clear the duration check
		config.PlayDuration = time.Duration(rules.MinPlayMS+1000) * time.Millisecond
	}
	if config.MaxScore == 0 {
		config.MaxScore = 200
	}

	return &Simulator{
		service:      svc,
		rules:        rules,
		stopCh:       make(chan struct{}),
		players:      config.Players,
		tickInterval: config.TickInterval,
		playDuration: config.PlayDuration,
		maxScore:     config.MaxScore,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins the simulation loop
func (sim *Simulator) Start(ctx context.Context) error {
	if sim.running.Load() {
		return fmt.Errorf("simulator already running")
	}
	sim.startTime = time.Now()
	sim.running.Store(true)

	log.Printf("Demo traffic simulator started")
	log.Printf("   - Players: %d", sim.players)
	log.Printf("   - Tick Interval: %v", sim.tickInterval)
	log.Printf("   - Play Duration: %v", sim.playDuration)

	sim.wg.Add(1)
	go sim.loop(ctx)

	sim.wg.Add(1)
	go sim.metricsReporter(ctx)

	return nil
}

// Stop gracefully stops the simulation
func (sim *Simulator) Stop() {
	if !sim.running.Load() {
		return
	}
	sim.running.Store(false)
	close(sim.stopCh)
	sim.wg.Wait()

	log.Printf("Demo traffic simulator stopped (started=%d submitted=%d rejected=%d)",
		sim.started.Load(), sim.submitted.Load(), sim.rejected.Load())
}

// IsRunning returns whether the simulation is currently running
func (sim *Simulator) IsRunning() bool {
	return sim.running.Load()
}

// GetMetrics returns current simulation metrics
func (sim *Simulator) GetMetrics() map[string]interface{} {
	elapsed := time.Since(sim.startTime)
	return map[string]interface{}{
		"running":   sim.running.Load(),
		"started":   sim.started.Load(),
		"submitted": sim.submitted.Load(),
		"rejected":  sim.rejected.Load(),
		"uptime":    elapsed.String(),
	}
}

// loop is the main event loop
func (sim *Simulator) loop(ctx context.Context) {
	defer sim.wg.Done()

	ticker := time.NewTicker(sim.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sim.stopCh:
			return
		case <-ticker.C:
			sim.submitDueRuns(ctx)
			sim.startRun(ctx)
		}
	}
}

// startRun issues a fresh run token for a random synthetic player.
func (sim *Simulator) startRun(ctx context.Context) {
	caller := fmt.Sprintf("sim_player_%d", sim.rng.Intn(sim.players)+1)

	resp, err := sim.service.StartRun(ctx, caller)
	if err != nil {
		log.Printf("⚠️ Simulator failed to start run: %v", err)
		return
	}
	sim.started.Add(1)

	now := time.Now()
	jitter := time.Duration(sim.rng.Int63n(int64(time.Second)))
	sim.pending = append(sim.pending, pendingRun{
		caller:  caller,
		runID:   resp.RunID,
		started: now,
		due:     now.Add(sim.playDuration + jitter),
	})
}

// submitDueRuns submits a plausible score for every run whose play time has
// elapsed.
func (sim *Simulator) submitDueRuns(ctx context.Context) {
	now := time.Now()
	remaining := sim.pending[:0]

	for _, run := range sim.pending {
		if now.Before(run.due) {
			remaining = append(remaining, run)
			continue
		}

		elapsed := now.Sub(run.started)
		allowed := sim.rules.MaxAllowedScore(elapsed)
		if allowed > sim.maxScore {
			allowed = sim.maxScore
		}
		score := sim.rng.Intn(allowed + 1)
		name := fmt.Sprintf("Sim %s", run.caller[len("sim_player_"):])

		if err := sim.service.SubmitScore(ctx, run.caller, run.runID, score, name); err != nil {
			sim.rejected.Add(1)
			if sim.rejected.Load()%100 == 1 {
				log.Printf("⚠️ Simulator submission rejected (total: %d): %v", sim.rejected.Load(), err)
			}
		} else {
			sim.submitted.Add(1)
		}
	}

	sim.pending = remaining
}

// metricsReporter logs metrics periodically
func (sim *Simulator) metricsReporter(ctx context.Context) {
	defer sim.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sim.stopCh:
			return
		case <-ticker.C:
			elapsed := time.Since(sim.startTime)
			log.Printf("📊 Simulator: started=%d submitted=%d rejected=%d uptime=%v",
				sim.started.Load(), sim.submitted.Load(), sim.rejected.Load(), elapsed.Round(time.Second))
		}
	}
}
