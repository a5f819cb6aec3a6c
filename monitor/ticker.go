package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/openroad/roadcall/alert"
	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
	"github.com/openroad/roadcall/logger"
)

// maxConsecutiveStoreFailures is how many dead-store ticks in a row the loop
// tolerates before pausing itself. Evaluating against possibly-stale state
// risks false assignments; standing down is the safe failure mode.
const maxConsecutiveStoreFailures = 5

// systemStoreID keys the store-outage alert in the alert state table.
const systemStoreID = "system:store"

// TickBroadcaster receives a status summary after every tick. Defined here
// to avoid a dependency on the server package.
type TickBroadcaster interface {
	BroadcastTick(status TickerStatus)
}

// Ticker drives the scan loop on the configured refresh interval. Ticks
// never overlap: the next tick is scheduled only after the previous one
// finishes, so a long offer chain delays scanning instead of racing it.
type Ticker struct {
	holder      *config.Holder
	scanner     *Scanner
	alerts      *alert.Dispatcher
	broadcaster TickBroadcaster

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu                  sync.Mutex
	started             bool
	paused              bool
	ticks               int64
	lastTickAt          time.Time
	consecutiveFailures int
}

// TickerStatus is the loop state surfaced on the stats endpoint.
type TickerStatus struct {
	Running             bool      `json:"running"`
	Paused              bool      `json:"paused"`
	Ticks               int64     `json:"ticks"`
	LastTickAt          time.Time `json:"last_tick_at"`
	ConsecutiveFailures int       `json:"consecutive_store_failures"`
}

// NewTicker creates a ticker reading its interval from the active snapshot.
func NewTicker(holder *config.Holder, scanner *Scanner, alerts *alert.Dispatcher) *Ticker {
	return NewTickerWithContext(context.Background(), holder, scanner, alerts)
}

// NewTickerWithContext creates a ticker under a parent context.
func NewTickerWithContext(ctx context.Context, holder *config.Holder, scanner *Scanner, alerts *alert.Dispatcher) *Ticker {
	tickerCtx, cancel := context.WithCancel(ctx)
	return &Ticker{
		holder:  holder,
		scanner: scanner,
		alerts:  alerts,
		ctx:     tickerCtx,
		cancel:  cancel,
	}
}

// SetBroadcaster installs a tick observer. Must be called before Start.
func (t *Ticker) SetBroadcaster(b TickBroadcaster) {
	t.broadcaster = b
}

// Start begins the loop.
func (t *Ticker) Start() {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run()
	logger.Infow("Monitor loop started",
		"interval", t.holder.Snapshot().RefreshInterval())
}

// Stop cancels the loop and waits for the current tick to finish.
func (t *Ticker) Stop() {
	t.cancel()
	t.wg.Wait()

	t.mu.Lock()
	t.started = false
	t.mu.Unlock()
	logger.Infow("Monitor loop stopped")
}

// Status reports the current loop state.
func (t *Ticker) Status() TickerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TickerStatus{
		Running:             t.started && !t.paused && t.ctx.Err() == nil,
		Paused:              t.paused,
		Ticks:               t.ticks,
		LastTickAt:          t.lastTickAt,
		ConsecutiveFailures: t.consecutiveFailures,
	}
}

func (t *Ticker) run() {
	defer t.wg.Done()

	for {
		// Interval is re-read each round so a config change takes
		// effect at the next tick boundary.
		timer := time.NewTimer(t.holder.Snapshot().RefreshInterval())
		select {
		case <-t.ctx.Done():
			timer.Stop()
			return
		case tickTime := <-timer.C:
			t.tick(tickTime)
			if t.isPaused() {
				return
			}
		}
	}
}

// tick runs one scan against a single config snapshot.
func (t *Ticker) tick(tickTime time.Time) {
	snap := t.holder.Snapshot()

	t.mu.Lock()
	t.ticks++
	t.lastTickAt = tickTime
	t.mu.Unlock()

	defer func() {
		if t.broadcaster != nil {
			t.broadcaster.BroadcastTick(t.Status())
		}
	}()

	if !snap.Config.Monitoring.Enabled {
		logger.Debugw("Monitoring disabled, skipping tick")
		return
	}

	err := t.scanner.Scan(t.ctx, snap)
	if err == nil {
		t.mu.Lock()
		t.consecutiveFailures = 0
		t.mu.Unlock()
		return
	}
	if t.ctx.Err() != nil {
		return
	}

	if !errors.IsStoreUnavailable(err) {
		logger.Errorw("Scan tick failed", "error", err)
		return
	}

	t.mu.Lock()
	t.consecutiveFailures++
	failures := t.consecutiveFailures
	t.mu.Unlock()

	logger.Warnw("Scan skipped, store unavailable",
		"consecutive_failures", failures, "error", err)
	if failures >= maxConsecutiveStoreFailures {
		t.pause(snap)
	}
}

// pause stands the loop down after repeated store outages and raises an
// unconditional admin alert. Restarting the process resumes monitoring.
func (t *Ticker) pause(snap *config.Snapshot) {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()

	logger.Errorw("Store unreachable on consecutive ticks, pausing monitor loop",
		"failures", maxConsecutiveStoreFailures)
	t.alerts.DispatchBypass(snap, &jobs.Job{
		ID:            systemStoreID,
		Status:        jobs.StatusOpen,
		PriorityClass: jobs.PriorityStandard,
		CreatedAt:     time.Now(),
	}, jobs.StageAdminAlerted)
}

func (t *Ticker) isPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}
