package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/trip-expense/internal/application/dispatcher"
	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/application/service"
	"github.com/garyjia/trip-expense/internal/domain/event"
	"github.com/garyjia/trip-expense/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/trip-expense/internal/infrastructure/worker"
	"github.com/garyjia/trip-expense/pkg/database"
)

// Container wires the trip expense service together. Start runs the init
// stages in order and Close releases what they opened in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	database     *database.DB
	db           *sqlite.TxManager
	repositories *RepositoryBundle
	storage      *StorageBundle
	metrics      *MetricsBundle

	// Optional backends; nil when disabled in config
	pusher port.NotificationPusher
	reader port.ReceiptReader

	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	workers    *worker.WorkerManager

	mu      sync.Mutex
	cancel  context.CancelFunc
	closers []closer
	state   lifecycle
}

type lifecycle int

const (
	stateNew lifecycle = iota
	stateRunning
	stateClosed
)

// closer releases one resource acquired during Start
type closer struct {
	name  string
	close func() error
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Trip         port.TripRepository
	Advance      port.AdvanceRepository
	Receipt      port.ReceiptRepository
	Settlement   port.SettlementRepository
	History      port.HistoryRepository
	Review       port.TripReviewRepository
	Notification port.NotificationRepository
	Setting      port.SettingRepository
	Sequence     port.SequenceRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Trip         service.TripService
	Advance      service.AdvanceService
	Receipt      service.ReceiptService
	Settlement   service.SettlementService
	Notification service.NotificationService
	Setting      service.SettingService
}

// NewContainer validates cfg; call Start to build the components.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{config: cfg, logger: logger}, nil
}

// Start builds every component. A failing stage closes whatever the
// earlier stages opened before the error is returned.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateRunning:
		return fmt.Errorf("container already started")
	case stateClosed:
		return fmt.Errorf("container has been closed")
	}

	ctx, c.cancel = context.WithCancel(ctx)

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"database", c.initDatabase},
		{"storage", c.initStorage},
		{"external clients", c.initExternalClients},
		{"services", c.initServices},
		{"workers", c.initWorkers},
	}

	for _, stage := range stages {
		if err := stage.run(ctx); err != nil {
			c.cancel()
			if closeErr := c.release(); closeErr != nil {
				c.logger.Error("Cleanup after failed start", zap.Error(closeErr))
			}
			return fmt.Errorf("failed to initialize %s: %w", stage.name, err)
		}
		c.logger.Info("Container stage ready", zap.String("stage", stage.name))
	}

	c.state = stateRunning
	c.logger.Info("Container started",
		zap.Bool("push_enabled", c.pusher != nil),
		zap.Bool("advisory_enabled", c.reader != nil),
		zap.Bool("metrics_enabled", c.metrics.Registry != nil),
		zap.Int("workers", c.workers.GetWorkerCount()))

	return nil
}

// Close stops workers, drains the dispatcher and closes the database.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return fmt.Errorf("container already closed")
	}
	c.state = stateClosed

	if c.cancel != nil {
		c.cancel()
	}
	if err := c.release(); err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}

	c.logger.Info("Container closed")
	return nil
}

func (c *Container) onClose(name string, fn func() error) {
	c.closers = append(c.closers, closer{name: name, close: fn})
}

// release runs the closers last-in first-out
func (c *Container) release() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", cl.name, err))
			continue
		}
		c.logger.Info("Component closed", zap.String("component", cl.name))
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Ready reports whether Start completed and Close has not been called.
func (c *Container) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// CheckHealth returns one entry per component; a nil error means healthy.
func (c *Container) CheckHealth(ctx context.Context) map[string]error {
	notStarted := errors.New("not initialized")
	report := map[string]error{
		"database":   notStarted,
		"storage":    notStarted,
		"workers":    notStarted,
		"dispatcher": notStarted,
	}

	if c.database != nil {
		report["database"] = c.database.PingContext(ctx)
	}
	if c.config.Storage.BaseDir != "" && c.storage != nil {
		if _, err := os.Stat(c.config.Storage.BaseDir); err != nil {
			report["storage"] = err
		} else {
			report["storage"] = nil
		}
	}
	if c.workers != nil {
		report["workers"] = nil
		if c.workers.GetWorkerCount() > 0 && !c.workers.IsRunning() {
			report["workers"] = errors.New("workers stopped")
		}
		for name, err := range c.workers.StartFailures() {
			report["workers"] = fmt.Errorf("%s did not start: %w", name, err)
		}
	}
	if c.dispatcher != nil {
		report["dispatcher"] = nil
		if len(c.dispatcher.Handlers(event.TypeTripStatusChanged)) == 0 {
			report["dispatcher"] = errors.New("no notification handler subscribed")
		}
	}

	return report
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle.DB
	c.db = bundle.TransactionMgr
	c.onClose("database", c.database.Close)

	c.repositories, err = ProvideRepositories(c.database.DB, c.logger)
	return err
}

func (c *Container) initStorage(context.Context) error {
	bundle, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.storage = bundle
	c.metrics = ProvideMetrics(&c.config.Metrics)
	return nil
}

func (c *Container) initExternalClients(context.Context) error {
	c.pusher = ProvideNotificationPusher(&c.config.Lark, c.logger)

	reader, err := ProvideReceiptReader(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.reader = reader
	return nil
}

func (c *Container) initServices(context.Context) error {
	c.dispatcher = ProvideDispatcher(c.logger, c.metrics.Events, c.config.Worker.ItemTimeout)
	// Pending notification handlers finish before the database goes away
	c.onClose("dispatcher", c.dispatcher.Close)

	services, err := ProvideServices(&ServiceDeps{
		Config:          c.config,
		Repos:           c.repositories,
		TxManager:       c.db,
		Storage:         c.storage,
		Publisher:       c.dispatcher,
		Observer:        c.metrics.Workflow,
		PushEnabled:     c.pusher != nil,
		AdvisoryEnabled: c.reader != nil,
		Logger:          c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services

	RegisterEventHandlers(c.dispatcher, services)
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Repos:     c.repositories,
		Storage:   c.storage,
		Pusher:    c.pusher,
		Reader:    c.reader,
		Recorder:  c.metrics.Workers,
		WorkerCfg: &c.config.Worker,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(ctx); err != nil {
		return err
	}
	c.onClose("workers", c.workers.StopAll)
	return nil
}

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Metrics returns the metrics bundle.
func (c *Container) Metrics() *MetricsBundle {
	return c.metrics
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}
