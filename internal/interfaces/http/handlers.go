package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	health         HealthChecker
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HealthChecker reports per-component health; a nil error means healthy
type HealthChecker interface {
	CheckHealth(ctx context.Context) map[string]error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// Version is reported by the health check
var Version = "dev"

// HealthCheck handles GET /health; a failing component answers 503
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}

	if h.health != nil {
		resp.Components = make(map[string]string)
		for name, err := range h.health.CheckHealth(c.Request.Context()) {
			if err != nil {
				resp.Status = "degraded"
				resp.Components[name] = err.Error()
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	if resp.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: resp})
		return
	}
	respondOK(c, resp)
}

// pageQuery holds list query parameters
type pageQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// noteRequest carries free-text notes for approvals and verifications
type noteRequest struct {
	Notes string `json:"notes"`
}

// reasonRequest carries a rejection or cancellation reason
type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondError(c, apperrors.Newf(apperrors.CodeValidation, "invalid %s %q", name, raw))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the body into req; an empty body leaves req zero-valued
func (h *Handlers) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, apperrors.Wrap(apperrors.CodeValidation, err, "invalid request body"))
		return false
	}
	return true
}

func (h *Handlers) bindPage(c *gin.Context) (pageQuery, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, apperrors.Wrap(apperrors.CodeValidation, err, "invalid query parameters"))
		return q, false
	}
	return q, true
}

func sendAttachment(c *gin.Context, fileName, contentType string, content []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, contentType, content)
}
