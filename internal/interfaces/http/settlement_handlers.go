package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-expense/internal/application/service"
	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// TripBalance handles GET /api/v1/trips/:id/balance
func (h *Handlers) TripBalance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	balance, err := h.services.Settlements.ComputeBalance(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, balance)
}

// GetTripSettlement handles GET /api/v1/trips/:id/settlement
func (h *Handlers) GetTripSettlement(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.services.Settlements.GetByTrip(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, summary)
}

// CreateSettlement handles POST /api/v1/trips/:id/settlement
func (h *Handlers) CreateSettlement(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	settlement, err := h.services.Settlements.Create(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, settlement)
}

// ExportStatement handles GET /api/v1/trips/:id/settlement/statement.xlsx
func (h *Handlers) ExportStatement(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	statement, err := h.services.Settlements.ExportStatement(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	sendAttachment(c, statement.FileName, statement.ContentType, statement.Content)
}

// ListSettlements handles GET /api/v1/settlements
func (h *Handlers) ListSettlements(c *gin.Context) {
	q, ok := h.bindPage(c)
	if !ok {
		return
	}
	settlements, err := h.services.Settlements.List(c.Request.Context(), actorFrom(c), entity.SettlementStatus(q.Status), q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, settlements)
}

// GetSettlement handles GET /api/v1/settlements/:id
func (h *Handlers) GetSettlement(c *gin.Context) {
	h.settlementAction(c, func(c *gin.Context, id int64) (*entity.Settlement, error) {
		return h.services.Settlements.Get(c.Request.Context(), actorFrom(c), id)
	})
}

// ProcessSettlement handles POST /api/v1/settlements/:id/process
func (h *Handlers) ProcessSettlement(c *gin.Context) {
	var req service.ProcessSettlementInput
	if !h.bindJSON(c, &req) {
		return
	}
	h.settlementAction(c, func(c *gin.Context, id int64) (*entity.Settlement, error) {
		return h.services.Settlements.Process(c.Request.Context(), actorFrom(c), id, req)
	})
}

// CompleteSettlement handles POST /api/v1/settlements/:id/complete
func (h *Handlers) CompleteSettlement(c *gin.Context) {
	h.settlementAction(c, func(c *gin.Context, id int64) (*entity.Settlement, error) {
		return h.services.Settlements.Complete(c.Request.Context(), actorFrom(c), id)
	})
}

// RecalculateSettlement handles POST /api/v1/settlements/:id/recalculate
func (h *Handlers) RecalculateSettlement(c *gin.Context) {
	h.settlementAction(c, func(c *gin.Context, id int64) (*entity.Settlement, error) {
		return h.services.Settlements.Recalculate(c.Request.Context(), actorFrom(c), id)
	})
}

func (h *Handlers) settlementAction(c *gin.Context, action func(c *gin.Context, id int64) (*entity.Settlement, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	settlement, err := action(c, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, settlement)
}
