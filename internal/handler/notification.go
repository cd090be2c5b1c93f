package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"medremind/internal/httputil"
	"medremind/internal/model"
	"medremind/internal/service"
	"medremind/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /notifications
// Returns the recipient's delivery history, newest first, with the
// unread count.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := 0 // service applies the default
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	deliveries, err := h.notifService.GetDeliveries(r.Context(), ownerID, limit)
	if err != nil {
		log.Printf("[ERROR] List notifications: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, deliveries)
}

// MarkRead handles PATCH /notifications/{id}/read
// Marks one delivery record as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	recordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid notification ID")
		return
	}

	if err := h.notifService.MarkRead(r.Context(), ownerID, recordID); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			httputil.WriteNotFound(w, "Notification not found")
			return
		}
		log.Printf("[ERROR] Mark notification read: owner=%d record=%d err=%v", ownerID, recordID, err)
		httputil.WriteInternalError(w, "Failed to mark notification as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Notification marked as read",
	})
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.notifService.MarkAllRead(r.Context(), ownerID); err != nil {
		log.Printf("[ERROR] Mark all notifications read: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to mark all notifications as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "All notifications marked as read",
	})
}

// GetUnreadCount handles GET /notifications/unread-count
// Returns the unread count for badge display.
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.notifService.UnreadCount(r.Context(), ownerID)
	if err != nil {
		log.Printf("[ERROR] Get unread count: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// RegisterToken handles POST /devices/token
// Stores the device token pushed up by the client's token manager.
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	if err := h.notifService.RegisterDeviceToken(r.Context(), ownerID, req.Token, req.Platform); err != nil {
		log.Printf("[ERROR] Register device token: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to register device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token registered",
	})
}

// RemoveToken handles DELETE /devices/token
// Removes the recipient's device token, typically at logout.
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.notifService.RemoveDeviceToken(r.Context(), ownerID); err != nil {
		log.Printf("[ERROR] Remove device token: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to remove device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token removed",
	})
}

// GetPreference handles GET /notifications/preference
func (h *NotificationHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	enabled, err := h.notifService.GetPreference(r.Context(), ownerID)
	if err != nil {
		log.Printf("[ERROR] Get preference: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to get notification preference")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// SetPreference handles PUT /notifications/preference
func (h *NotificationHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.UpdatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Enabled == nil {
		httputil.WriteBadRequest(w, "enabled is required")
		return
	}

	if err := h.notifService.SetPreference(r.Context(), ownerID, *req.Enabled); err != nil {
		log.Printf("[ERROR] Set preference: owner=%d err=%v", ownerID, err)
		httputil.WriteInternalError(w, "Failed to update notification preference")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}
