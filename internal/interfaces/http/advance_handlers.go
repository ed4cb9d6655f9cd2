package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-expense/internal/application/service"
	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// approveAdvanceRequest is the area approval body; amounts are in cents
type approveAdvanceRequest struct {
	ApprovedAmount entity.Money `json:"approved_amount"`
	Notes          string       `json:"notes"`
}

// RequestAdvance handles POST /api/v1/advances
func (h *Handlers) RequestAdvance(c *gin.Context) {
	var req service.RequestAdvanceInput
	if !h.bindJSON(c, &req) {
		return
	}
	advance, err := h.services.Advances.Request(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, advance)
}

// ListAdvances handles GET /api/v1/advances
func (h *Handlers) ListAdvances(c *gin.Context) {
	q, ok := h.bindPage(c)
	if !ok {
		return
	}
	advances, err := h.services.Advances.List(c.Request.Context(), actorFrom(c), entity.AdvanceStatus(q.Status), q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, advances)
}

// GetAdvance handles GET /api/v1/advances/:id
func (h *Handlers) GetAdvance(c *gin.Context) {
	h.advanceAction(c, func(c *gin.Context, id int64) (*entity.Advance, error) {
		return h.services.Advances.Get(c.Request.Context(), actorFrom(c), id)
	})
}

// DeleteAdvance handles DELETE /api/v1/advances/:id
func (h *Handlers) DeleteAdvance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Advances.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "deleted": true})
}

// ApproveAdvanceByArea handles POST /api/v1/advances/:id/approve-area
func (h *Handlers) ApproveAdvanceByArea(c *gin.Context) {
	var req approveAdvanceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.advanceAction(c, func(c *gin.Context, id int64) (*entity.Advance, error) {
		return h.services.Advances.ApproveByArea(c.Request.Context(), actorFrom(c), id, req.ApprovedAmount, req.Notes)
	})
}

// ApproveAdvanceByRegional handles POST /api/v1/advances/:id/approve-regional
func (h *Handlers) ApproveAdvanceByRegional(c *gin.Context) {
	var req noteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.advanceAction(c, func(c *gin.Context, id int64) (*entity.Advance, error) {
		return h.services.Advances.ApproveByRegional(c.Request.Context(), actorFrom(c), id, req.Notes)
	})
}

// TransferAdvance handles POST /api/v1/advances/:id/transfer
func (h *Handlers) TransferAdvance(c *gin.Context) {
	var req service.TransferInput
	if !h.bindJSON(c, &req) {
		return
	}
	h.advanceAction(c, func(c *gin.Context, id int64) (*entity.Advance, error) {
		return h.services.Advances.MarkTransferred(c.Request.Context(), actorFrom(c), id, req)
	})
}

// RejectAdvance handles POST /api/v1/advances/:id/reject
func (h *Handlers) RejectAdvance(c *gin.Context) {
	var req reasonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.advanceAction(c, func(c *gin.Context, id int64) (*entity.Advance, error) {
		return h.services.Advances.Reject(c.Request.Context(), actorFrom(c), id, req.Reason)
	})
}

// AdvanceHistory handles GET /api/v1/advances/:id/history
func (h *Handlers) AdvanceHistory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.services.Advances.History(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, entries)
}

func (h *Handlers) advanceAction(c *gin.Context, action func(c *gin.Context, id int64) (*entity.Advance, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	advance, err := action(c, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, advance)
}
