package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carpool/internal/trip"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		notConfigured(w, "notification store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	page, limit, offset := pageLimit(r)

	total, err := h.notes.CountNotifications(r.Context(), id.UserID, unreadOnly)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	notifications, err := h.notes.ListNotifications(r.Context(), id.UserID, unreadOnly, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if notifications == nil {
		notifications = []trip.Notification{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"pagination":    paginate(page, limit, total),
	})
}

func (h *Handler) NotificationStats(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		notConfigured(w, "notification store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	total, unread, byType, err := h.notes.NotificationStats(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"unread": unread,
		"byType": byType,
	})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		notConfigured(w, "notification store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.notes.MarkNotificationRead(r.Context(), id.UserID, chi.URLParam(r, "notificationID")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		notConfigured(w, "notification store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	updated, err := h.notes.MarkAllNotificationsRead(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		notConfigured(w, "notification store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.notes.DeleteNotification(r.Context(), id.UserID, chi.URLParam(r, "notificationID")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type preferencesPayload struct {
	Email *bool `json:"email,omitempty"`
	Push  *bool `json:"push,omitempty"`
	SMS   *bool `json:"sms,omitempty"`
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		notConfigured(w, "user store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var payload preferencesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	prefs, err := h.users.UpdatePreferences(r.Context(), id.UserID, payload.Email, payload.Push, payload.SMS)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
