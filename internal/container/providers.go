package container

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/garyjia/trip-expense/internal/application/authz"
	"github.com/garyjia/trip-expense/internal/application/dispatcher"
	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/application/service"
	"github.com/garyjia/trip-expense/internal/application/workflow"
	infraLark "github.com/garyjia/trip-expense/internal/infrastructure/external/lark"
	"github.com/garyjia/trip-expense/internal/infrastructure/external/openai"
	"github.com/garyjia/trip-expense/internal/infrastructure/metrics"
	"github.com/garyjia/trip-expense/internal/infrastructure/persistence/repository"
	"github.com/garyjia/trip-expense/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/trip-expense/internal/infrastructure/report"
	"github.com/garyjia/trip-expense/internal/infrastructure/storage"
	"github.com/garyjia/trip-expense/internal/infrastructure/worker"
	"github.com/garyjia/trip-expense/migrations"
	"github.com/garyjia/trip-expense/pkg/database"
	"github.com/garyjia/trip-expense/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.TxManager
}

// StorageBundle holds storage-related components.
type StorageBundle struct {
	FileStorage   port.FileStorage
	FolderManager port.FolderManager
}

// MetricsBundle holds the prometheus registry and recorders.
type MetricsBundle struct {
	Registry *prometheus.Registry
	Workflow *metrics.WorkflowMetrics
	Events   *metrics.EventMetrics
	HTTP     *metrics.HTTPMetrics
	Workers  *metrics.WorkerMetrics
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
	}
	if _, err := database.NewMigrator(db, logger).Migrate(ctx, source); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewTxManager(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Trip:         repository.NewTripRepository(sqlDB, logger),
		Advance:      repository.NewAdvanceRepository(sqlDB, logger),
		Receipt:      repository.NewReceiptRepository(sqlDB, logger),
		Settlement:   repository.NewSettlementRepository(sqlDB, logger),
		History:      repository.NewHistoryRepository(sqlDB, logger),
		Review:       repository.NewTripReviewRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
		Setting:      repository.NewSettingRepository(sqlDB, logger),
		Sequence:     repository.NewSequenceRepository(sqlDB, logger),
	}, nil
}

// ProvideStorage creates file storage and folder manager rooted at the same directory.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil || cfg.BaseDir == "" {
		return nil, fmt.Errorf("storage base directory is required")
	}
	store, err := storage.NewStore(cfg.BaseDir, logger)
	if err != nil {
		return nil, err
	}
	return &StorageBundle{
		FileStorage:   store,
		FolderManager: store,
	}, nil
}

// ProvideMetrics creates a registry with process and Go collectors; disabled metrics yield no-op recorders.
func ProvideMetrics(cfg *MetricsConfig) *MetricsBundle {
	if cfg == nil || !cfg.Enabled {
		return &MetricsBundle{
			Workflow: metrics.NewWorkflowMetrics(nil),
			Events:   metrics.NewEventMetrics(nil),
			HTTP:     metrics.NewHTTPMetrics(nil),
			Workers:  metrics.NewWorkerMetrics(nil),
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsBundle{
		Registry: reg,
		Workflow: metrics.NewWorkflowMetrics(reg),
		Events:   metrics.NewEventMetrics(reg),
		HTTP:     metrics.NewHTTPMetrics(reg),
		Workers:  metrics.NewWorkerMetrics(reg),
	}
}

// ProvideNotificationPusher creates the Lark pusher, or nil when push is disabled.
func ProvideNotificationPusher(cfg *LarkConfig, logger *zap.Logger) port.NotificationPusher {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	client := infraLark.NewClient(infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
	}, logger)
	return infraLark.NewPusher(client, logger)
}

// ProvideReceiptReader creates the OpenAI receipt reader, or nil when the advisory is disabled.
func ProvideReceiptReader(cfg *OpenAIConfig, logger *zap.Logger) (port.ReceiptReader, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return openai.NewReceiptReader(openai.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		MaxPages: cfg.MaxPages,
	}, prompts, logger), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Config    *Config
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Storage   *StorageBundle
	Publisher dispatcher.Publisher
	Observer  workflow.TransitionObserver
	// PushEnabled marks new notifications for the push worker
	PushEnabled bool
	// AdvisoryEnabled marks new receipts for the advisory worker
	AdvisoryEnabled bool
	Logger          *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Config == nil || deps.Repos == nil || deps.Storage == nil {
		return nil, fmt.Errorf("service dependencies are incomplete")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	cfg := deps.Config
	logger := utils.NewKeyValueLogger(deps.Logger)
	repos := deps.Repos

	basis := service.AdvanceBasis(cfg.Settlement.AdvanceBasis)
	if !basis.IsValid() {
		return nil, fmt.Errorf("unknown advance basis %q", cfg.Settlement.AdvanceBasis)
	}

	ledger := service.NewHistoryLedger(repos.History)
	engine := workflow.NewEngine(ledger, workflow.WithObserver(deps.Observer))
	policy := authz.NewPolicy()

	shared := service.Deps{
		Trips:         repos.Trip,
		Advances:      repos.Advance,
		Receipts:      repos.Receipt,
		Settlements:   repos.Settlement,
		Reviews:       repos.Review,
		Notifications: repos.Notification,
		Sequences:     repos.Sequence,
		Ledger:        ledger,
		Engine:        engine,
		Reconciler:    service.NewReconciler(repos.Advance, repos.Receipt, basis),
		Policy:        policy,
		TxManager:     deps.TxManager,
		Publisher:     deps.Publisher,
		Files:         deps.Storage.FileStorage,
		Folders:       deps.Storage.FolderManager,
		Logger:        logger,
	}

	settlements := service.NewSettlementService(shared, report.NewStatementRenderer(cfg.Storage.CompanyName, deps.Logger))

	return &ServiceBundle{
		Trip: service.NewTripService(shared, service.TripOptions{
			RequireEndedBeforeSubmit: cfg.Workflow.RequireEndedBeforeSubmit,
			AutoCreateSettlement:     cfg.Workflow.AutoCreateSettlement,
		}, settlements),
		Advance: service.NewAdvanceService(shared),
		Receipt: service.NewReceiptService(shared, service.ReceiptOptions{
			MaxFileSize:       cfg.Receipts.MaxFileSize,
			AllowedExtensions: cfg.Receipts.AllowedExtensions,
			AdvisoryEnabled:   deps.AdvisoryEnabled,
		}),
		Settlement:   settlements,
		Notification: service.NewNotificationService(repos.Notification, deps.PushEnabled, logger),
		Setting:      service.NewSettingService(repos.Setting, policy, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher; handlerTimeout bounds each async handler.
func ProvideDispatcher(logger *zap.Logger, observer dispatcher.HandlerObserver, handlerTimeout time.Duration) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKeyValueLogger(logger)),
		dispatcher.WithHandlerObserver(observer),
		dispatcher.WithHandlerTimeout(handlerTimeout),
	)
}

// RegisterEventHandlers subscribes the notification handler to the workflow events.
func RegisterEventHandlers(d dispatcher.Dispatcher, services *ServiceBundle) {
	d.Subscribe(service.NotificationEventTypes, "notifications", services.Notification.HandleEvent)
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Repos     *RepositoryBundle
	Storage   *StorageBundle
	Pusher    port.NotificationPusher
	Reader    port.ReceiptReader
	Recorder  worker.ItemRecorder
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager; each worker is registered only when its backend is configured.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Repos == nil || deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker dependencies are incomplete")
	}

	manager := worker.NewWorkerManager(deps.Logger)
	cfg := deps.WorkerCfg

	if deps.Pusher != nil {
		manager.Register(worker.NewNotificationPushWorker(
			deps.Repos.Notification,
			deps.Pusher,
			deps.Recorder,
			worker.PollerConfig{
				PollInterval: cfg.PushPollInterval,
				BatchSize:    cfg.PushBatchSize,
				ItemTimeout:  cfg.ItemTimeout,
			},
			deps.Logger,
		))
	}

	if deps.Reader != nil {
		if deps.Storage == nil {
			return nil, fmt.Errorf("storage is required for the receipt advisory worker")
		}
		manager.Register(worker.NewReceiptAdvisoryWorker(
			deps.Repos.Receipt,
			deps.Storage.FileStorage,
			deps.Reader,
			deps.Recorder,
			worker.PollerConfig{
				PollInterval: cfg.AdvisoryPollInterval,
				BatchSize:    cfg.AdvisoryBatchSize,
				ItemTimeout:  cfg.ItemTimeout,
			},
			deps.Logger,
		))
	}

	return manager, nil
}
