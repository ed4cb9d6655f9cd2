package http

import (
	"github.com/gin-gonic/gin"
)

// settingRequest is the body of a settings update
type settingRequest struct {
	Value string `json:"value"`
}

// ListNotifications handles GET /api/v1/notifications?unread=true
func (h *Handlers) ListNotifications(c *gin.Context) {
	q, ok := h.bindPage(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.services.Notifications.List(c.Request.Context(), actorFrom(c), unreadOnly, q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, notifications)
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *Handlers) UnreadCount(c *gin.Context) {
	count, err := h.services.Notifications.UnreadCount(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"unread": count})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Notifications.MarkRead(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "is_read": true})
}

// MarkAllNotificationsRead handles POST /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	updated, err := h.services.Notifications.MarkAllRead(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"updated": updated})
}

// DeleteNotification handles DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Notifications.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "deleted": true})
}

// ListSettings handles GET /api/v1/settings
func (h *Handlers) ListSettings(c *gin.Context) {
	settings, err := h.services.Settings.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, settings)
}

// GetSetting handles GET /api/v1/settings/:key
func (h *Handlers) GetSetting(c *gin.Context) {
	setting, err := h.services.Settings.Get(c.Request.Context(), actorFrom(c), c.Param("key"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, setting)
}

// PricePerKM handles GET /api/v1/settings/price-per-km for every role
func (h *Handlers) PricePerKM(c *gin.Context) {
	rate, err := h.services.Settings.PricePerKM(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"price_per_km": rate})
}

// UpdateSetting handles PUT /api/v1/settings/:key
func (h *Handlers) UpdateSetting(c *gin.Context) {
	var req settingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	setting, err := h.services.Settings.Update(c.Request.Context(), actorFrom(c), c.Param("key"), req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, setting)
}
