package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-expense/internal/application/service"
	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// CreateTrip handles POST /api/v1/trips
func (h *Handlers) CreateTrip(c *gin.Context) {
	var req service.CreateTripInput
	if !h.bindJSON(c, &req) {
		return
	}
	trip, err := h.services.Trips.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, trip)
}

// ListTrips handles GET /api/v1/trips
func (h *Handlers) ListTrips(c *gin.Context) {
	q, ok := h.bindPage(c)
	if !ok {
		return
	}
	trips, err := h.services.Trips.List(c.Request.Context(), actorFrom(c), entity.TripStatus(q.Status), q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, trips)
}

// TripStatistics handles GET /api/v1/trips/statistics
func (h *Handlers) TripStatistics(c *gin.Context) {
	stats, err := h.services.Trips.Statistics(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, stats)
}

// GetTrip handles GET /api/v1/trips/:id
func (h *Handlers) GetTrip(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.services.Trips.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, summary)
}

// UpdateTrip handles PUT /api/v1/trips/:id
func (h *Handlers) UpdateTrip(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req service.CreateTripInput
	if !h.bindJSON(c, &req) {
		return
	}
	trip, err := h.services.Trips.Update(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, trip)
}

// PurgeTrip handles DELETE /api/v1/trips/:id
func (h *Handlers) PurgeTrip(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Trips.Purge(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "deleted": true})
}

// SubmitTrip handles POST /api/v1/trips/:id/submit
func (h *Handlers) SubmitTrip(c *gin.Context) {
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.Submit(c.Request.Context(), actorFrom(c), id)
	})
}

// CancelTrip handles POST /api/v1/trips/:id/cancel
func (h *Handlers) CancelTrip(c *gin.Context) {
	var req reasonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.Cancel(c.Request.Context(), actorFrom(c), id, req.Reason)
	})
}

// RequestExtension handles POST /api/v1/trips/:id/extension
func (h *Handlers) RequestExtension(c *gin.Context) {
	var req service.ExtensionInput
	if !h.bindJSON(c, &req) {
		return
	}
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.RequestExtension(c.Request.Context(), actorFrom(c), id, req)
	})
}

// CancelExtension handles DELETE /api/v1/trips/:id/extension
func (h *Handlers) CancelExtension(c *gin.Context) {
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.CancelExtension(c.Request.Context(), actorFrom(c), id)
	})
}

// ApproveTripByArea handles POST /api/v1/trips/:id/approve-area
func (h *Handlers) ApproveTripByArea(c *gin.Context) {
	var req noteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.ApproveByArea(c.Request.Context(), actorFrom(c), id, req.Notes)
	})
}

// ApproveTripByRegional handles POST /api/v1/trips/:id/approve-regional
func (h *Handlers) ApproveTripByRegional(c *gin.Context) {
	var req noteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.ApproveByRegional(c.Request.Context(), actorFrom(c), id, req.Notes)
	})
}

// RejectTripSettlement handles POST /api/v1/trips/:id/reject
func (h *Handlers) RejectTripSettlement(c *gin.Context) {
	var req reasonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.RejectSettlement(c.Request.Context(), actorFrom(c), id, req.Reason)
	})
}

// ReviewTripByArea handles POST /api/v1/trips/:id/review-area
func (h *Handlers) ReviewTripByArea(c *gin.Context) {
	var req service.ReviewInput
	if !h.bindJSON(c, &req) {
		return
	}
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.ReviewByArea(c.Request.Context(), actorFrom(c), id, req)
	})
}

// ReviewTripByRegional handles POST /api/v1/trips/:id/review-regional
func (h *Handlers) ReviewTripByRegional(c *gin.Context) {
	var req service.ReviewInput
	if !h.bindJSON(c, &req) {
		return
	}
	h.tripAction(c, func(c *gin.Context, id int64) (*entity.Trip, error) {
		return h.services.Trips.ReviewByRegional(c.Request.Context(), actorFrom(c), id, req)
	})
}

// TripReviews handles GET /api/v1/trips/:id/reviews
func (h *Handlers) TripReviews(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.services.Trips.Reviews(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, reviews)
}

// TripHistory handles GET /api/v1/trips/:id/history
func (h *Handlers) TripHistory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.services.Trips.History(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, entries)
}

// ListTripAdvances handles GET /api/v1/trips/:id/advances
func (h *Handlers) ListTripAdvances(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	advances, err := h.services.Advances.ListByTrip(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, advances)
}

// ListTripReceipts handles GET /api/v1/trips/:id/receipts?verified=true
func (h *Handlers) ListTripReceipts(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	verifiedOnly := c.Query("verified") == "true"
	receipts, err := h.services.Receipts.ListByTrip(c.Request.Context(), actorFrom(c), id, verifiedOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, receipts)
}

func (h *Handlers) tripAction(c *gin.Context, action func(c *gin.Context, id int64) (*entity.Trip, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	trip, err := action(c, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, trip)
}
