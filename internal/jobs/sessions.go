package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Ananth-NQI/propertybot-backend/internal/services"
)

// SessionSweepJob periodically resets idle conversations and forgets abandoned ones
type SessionSweepJob struct {
	sessions     *services.SessionStore
	interval     time.Duration
	resetTimeout time.Duration
	gcTimeout    time.Duration
	now          func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSessionSweepJob creates a sweeper using the store's configured timeouts
func NewSessionSweepJob(sessions *services.SessionStore, interval time.Duration) *SessionSweepJob {
	cfg := sessions.Config()
	return &SessionSweepJob{
		sessions:     sessions,
		interval:     interval,
		resetTimeout: cfg.ResetTimeout,
		gcTimeout:    cfg.GCTimeout,
		now:          time.Now,
	}
}

// SetClock overrides the time source
func (j *SessionSweepJob) SetClock(now func() time.Time) {
	j.now = now
}

// Start launches the sweep loop. It stops when ctx is done or Stop is called.
func (j *SessionSweepJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		log.Println("Session sweeper already running")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	j.isRunning = true
	log.Printf("🧹 Session sweeper started (every %v, reset after %v, forget after %v)", j.interval, j.resetTimeout, j.gcTimeout)

	go j.loop(ctx, j.done)
}

// Stop halts the loop and waits for an in-progress sweep to finish
func (j *SessionSweepJob) Stop() {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return
	}
	j.cancel()
	done := j.done
	j.mu.Unlock()

	<-done
	log.Println("⏹️  Session sweeper stopped")
}

// IsRunning reports whether the loop is active
func (j *SessionSweepJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.isRunning
}

func (j *SessionSweepJob) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(j.interval)
	defer func() {
		ticker.Stop()
		j.mu.Lock()
		j.isRunning = false
		j.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce evicts sessions idle past the GC timeout, then resets those idle
// past the reset timeout. Returns how many were reset and evicted.
func (j *SessionSweepJob) RunOnce() (reset, evicted int) {
	now := j.now()
	evicted = j.sessions.ExpireStale(now, j.gcTimeout, services.ExpiryEvict)
	reset = j.sessions.ExpireStale(now, j.resetTimeout, services.ExpiryReset)
	if reset > 0 || evicted > 0 {
		log.Printf("🧹 Session sweep: %d reset, %d evicted", reset, evicted)
	}
	return reset, evicted
}
