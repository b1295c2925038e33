package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
)

// DefaultSweepInterval is the default period between object map sweeps.
const DefaultSweepInterval = 30 * time.Second

// SweepStats holds the result of a single sweep.
type SweepStats struct {
	Swept         int
	SweepDuration time.Duration
	Timestamp     time.Time
	Snapshot      Stats
}

// Sweeper periodically drops object map entries whose proxies have been
// collected but whose cleanup has not run yet. It keeps long-running
// sessions from accumulating dead forward entries between collections.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // start/stop lifecycle

	sweepCount atomic.Uint64
	lastStats  atomic.Pointer[SweepStats]
	log        commonlog.Logger
}

// NewSweeper creates a sweeper for e. A non-positive interval selects
// DefaultSweepInterval.
func NewSweeper(e *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &Sweeper{
		engine:   e,
		interval: interval,
		log:      commonlog.GetLogger("tether.sweeper"),
	}
	s.enabled.Store(true)
	return s
}

// Start begins the sweep goroutine. Calling Start twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.loop(s.stop, s.stopped)
}

// Stop halts the sweep goroutine and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stopCh, stoppedCh := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled pauses or resumes sweeping without stopping the goroutine.
func (s *Sweeper) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

func (s *Sweeper) IsEnabled() bool {
	return s.enabled.Load()
}

func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// SweepCount returns the number of sweeps performed.
func (s *Sweeper) SweepCount() uint64 {
	return s.sweepCount.Load()
}

// LastStats returns the most recent sweep result, or nil.
func (s *Sweeper) LastStats() *SweepStats {
	return s.lastStats.Load()
}

// SweepNow sweeps immediately.
func (s *Sweeper) SweepNow() *SweepStats {
	return s.sweep()
}

func (s *Sweeper) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if s.enabled.Load() {
				s.sweep()
			}
		}
	}
}

func (s *Sweeper) sweep() *SweepStats {
	start := time.Now()
	stats := &SweepStats{
		Swept:     s.engine.Objects.Sweep(),
		Timestamp: start,
	}
	stats.SweepDuration = time.Since(start)
	stats.Snapshot = s.engine.Stats()

	if stats.Swept > 0 {
		s.log.Debugf("swept %d dead object entries in %s", stats.Swept, stats.SweepDuration)
	}
	s.sweepCount.Add(1)
	s.lastStats.Store(stats)
	return stats
}
