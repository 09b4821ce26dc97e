package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes expired entries and reports how many went away.
type Sweeper interface {
	Sweep() int
}

// CleanupConfig holds configuration for the session janitor.
type CleanupConfig struct {
	// Interval is how often idle sessions are swept.
	// Default: 5 minutes
	Interval time.Duration
}

// DefaultCleanupConfig returns default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval: 5 * time.Minute,
	}
}

// SessionJanitor periodically expires idle session contexts.
type SessionJanitor struct {
	sessions  Sweeper
	config    CleanupConfig
	logger    *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewSessionJanitor creates a new janitor.
func NewSessionJanitor(sessions Sweeper, config CleanupConfig, logger *zap.Logger) *SessionJanitor {
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupConfig().Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionJanitor{
		sessions: sessions,
		config:   config,
		logger:   logger.Named("session_janitor"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins sweeping in the background.
func (j *SessionJanitor) Start() {
	j.mu.Lock()
	if j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = true
	j.ticker = time.NewTicker(j.config.Interval)
	j.mu.Unlock()

	j.logger.Info("started", zap.Duration("interval", j.config.Interval))

	go j.run()
}

func (j *SessionJanitor) run() {
	defer close(j.doneCh)
	for {
		select {
		case <-j.ticker.C:
			j.RunNow()
		case <-j.stopCh:
			j.logger.Info("stopped")
			return
		}
	}
}

// Stop stops the janitor and waits for the loop to exit.
func (j *SessionJanitor) Stop() {
	j.stopOnce.Do(func() {
		j.mu.Lock()
		running := j.isRunning
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.stopCh)
		j.isRunning = false
		j.mu.Unlock()

		if running {
			<-j.doneCh
		}
	})
}

// RunNow sweeps immediately and returns the number of expired sessions.
func (j *SessionJanitor) RunNow() int {
	n := j.sessions.Sweep()
	if n > 0 {
		j.logger.Info("expired idle sessions", zap.Int("count", n))
	} else {
		j.logger.Debug("no idle sessions to expire")
	}
	return n
}
