package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PollerConfig holds the polling cadence shared by the workers
type PollerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	ItemTimeout  time.Duration
}

// DefaultPollerConfig returns default configuration
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    20,
		ItemTimeout:  60 * time.Second,
	}
}

func (c PollerConfig) withDefaults() PollerConfig {
	d := DefaultPollerConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = d.ItemTimeout
	}
	return c
}

// WorkerStats is a snapshot of a poller's counters
type WorkerStats struct {
	Processed     int
	Failed        int
	LastProcessed time.Time
	LastError     error
}

// poller runs process on every tick until stopped
type poller struct {
	name    string
	config  PollerConfig
	process func(ctx context.Context) error
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	stats     WorkerStats
}

func newPoller(name string, config PollerConfig, logger *zap.Logger) *poller {
	return &poller{
		name:   name,
		config: config.withDefaults(),
		logger: logger,
	}
}

// Start begins the polling loop
func (p *poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return fmt.Errorf("%s already running", p.name)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.isRunning = true

	p.logger.Info("Worker polling started",
		zap.String("worker_name", p.name),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("batch_size", p.config.BatchSize))

	go p.pollLoop(loopCtx, p.done)
	return nil
}

// Stop cancels the loop and waits for the current batch to finish
func (p *poller) Stop() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done

	stats := p.Stats()
	p.logger.Info("Worker polling stopped",
		zap.String("worker_name", p.name),
		zap.Int("processed_count", stats.Processed),
		zap.Int("failed_count", stats.Failed))
	return nil
}

// Name returns the worker name for identification
func (p *poller) Name() string {
	return p.name
}

// Stats returns a snapshot of the counters
func (p *poller) Stats() WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

func (p *poller) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := p.process(ctx)

			p.mu.Lock()
			p.stats.LastProcessed = time.Now()
			if err != nil {
				p.stats.LastError = err
			}
			p.mu.Unlock()

			if err != nil && ctx.Err() == nil {
				p.logger.Error("Worker batch failed", zap.String("worker_name", p.name), zap.Error(err))
			}
		}
	}
}

func (p *poller) record(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if success {
		p.stats.Processed++
	} else {
		p.stats.Failed++
	}
}
