// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-expense/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// MaxUploadBytes bounds multipart request bodies
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxUploadBytes:  6 << 20,
	}
}

// Services are the application services exposed over HTTP
type Services struct {
	Trips         service.TripService
	Advances      service.AdvanceService
	Receipts      service.ReceiptService
	Settlements   service.SettlementService
	Notifications service.NotificationService
	Settings      service.SettingService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	auth       Authenticator
	observer   RequestObserver
	metrics    http.Handler
	logger     Logger
}

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithRequestObserver records request metrics through observer
func WithRequestObserver(observer RequestObserver) ServerOption {
	return func(s *Server) { s.observer = observer }
}

// WithHealthChecker adds component checks to GET /health
func WithHealthChecker(checker HealthChecker) ServerOption {
	return func(s *Server) { s.handlers.health = checker }
}

// WithMetricsHandler serves handler at GET /metrics
func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *Server) { s.metrics = handler }
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, auth Authenticator, logger Logger, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(services, config.MaxUploadBytes, logger),
		auth:     auth,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(corsMiddleware())
	if s.observer != nil {
		s.router.Use(metricsMiddleware(s.observer))
	}
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := s.router.Group("/api/v1")
	api.Use(h.authMiddleware(s.auth))

	trips := api.Group("/trips")
	{
		trips.POST("", h.CreateTrip)
		trips.GET("", h.ListTrips)
		trips.GET("/statistics", h.TripStatistics)
		trips.GET("/:id", h.GetTrip)
		trips.PUT("/:id", h.UpdateTrip)
		trips.DELETE("/:id", h.PurgeTrip)
		trips.POST("/:id/submit", h.SubmitTrip)
		trips.POST("/:id/cancel", h.CancelTrip)
		trips.POST("/:id/extension", h.RequestExtension)
		trips.DELETE("/:id/extension", h.CancelExtension)
		trips.POST("/:id/approve-area", h.ApproveTripByArea)
		trips.POST("/:id/approve-regional", h.ApproveTripByRegional)
		trips.POST("/:id/reject", h.RejectTripSettlement)
		trips.POST("/:id/review-area", h.ReviewTripByArea)
		trips.POST("/:id/review-regional", h.ReviewTripByRegional)
		trips.GET("/:id/reviews", h.TripReviews)
		trips.GET("/:id/history", h.TripHistory)
		trips.GET("/:id/advances", h.ListTripAdvances)
		trips.GET("/:id/receipts", h.ListTripReceipts)
		trips.GET("/:id/balance", h.TripBalance)
		trips.GET("/:id/settlement", h.GetTripSettlement)
		trips.POST("/:id/settlement", h.CreateSettlement)
		trips.GET("/:id/settlement/statement.xlsx", h.ExportStatement)
	}

	advances := api.Group("/advances")
	{
		advances.POST("", h.RequestAdvance)
		advances.GET("", h.ListAdvances)
		advances.GET("/:id", h.GetAdvance)
		advances.DELETE("/:id", h.DeleteAdvance)
		advances.POST("/:id/approve-area", h.ApproveAdvanceByArea)
		advances.POST("/:id/approve-regional", h.ApproveAdvanceByRegional)
		advances.POST("/:id/transfer", h.TransferAdvance)
		advances.POST("/:id/reject", h.RejectAdvance)
		advances.GET("/:id/history", h.AdvanceHistory)
	}

	receipts := api.Group("/receipts")
	{
		receipts.POST("", h.UploadReceipt)
		receipts.GET("/:id", h.GetReceipt)
		receipts.PUT("/:id", h.UpdateReceipt)
		receipts.DELETE("/:id", h.DeleteReceipt)
		receipts.POST("/:id/verify", h.VerifyReceipt)
		receipts.POST("/:id/unverify", h.UnverifyReceipt)
		receipts.GET("/:id/file", h.DownloadReceipt)
	}

	settlements := api.Group("/settlements")
	{
		settlements.GET("", h.ListSettlements)
		settlements.GET("/:id", h.GetSettlement)
		settlements.POST("/:id/process", h.ProcessSettlement)
		settlements.POST("/:id/complete", h.CompleteSettlement)
		settlements.POST("/:id/recalculate", h.RecalculateSettlement)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/read-all", h.MarkAllNotificationsRead)
		notifications.POST("/:id/read", h.MarkNotificationRead)
		notifications.DELETE("/:id", h.DeleteNotification)
	}

	settings := api.Group("/settings")
	{
		settings.GET("", h.ListSettings)
		settings.GET("/price-per-km", h.PricePerKM)
		settings.GET("/:key", h.GetSetting)
		settings.PUT("/:key", h.UpdateSetting)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
