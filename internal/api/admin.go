package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carpool/internal/storage"
	"carpool/internal/trip"
)

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	if h.admin == nil || h.users == nil {
		notConfigured(w, "admin store")
		return
	}
	since := time.Now().AddDate(0, 0, -30)
	stats, err := h.admin.Dashboard(r.Context(), since)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	recentUsers, err := h.users.ListUsers(r.Context(), storage.UserFilter{}, 5, 0)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	recentRides, err := h.admin.ListRecentRides(r.Context(), 5)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"stats":       stats,
		"recentUsers": recentUsers,
		"recentRides": recentRides,
	})
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		notConfigured(w, "user store")
		return
	}
	page, limit, offset := pageLimit(r)
	filter := storage.UserFilter{
		Search: r.URL.Query().Get("search"),
		Role:   trip.Role(r.URL.Query().Get("role")),
	}
	if v := r.URL.Query().Get("isActive"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}

	total, err := h.users.CountUsers(r.Context(), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	users, err := h.users.ListUsers(r.Context(), filter, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if users == nil {
		users = []trip.User{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": paginate(page, limit, total),
	})
}

type userStatusPayload struct {
	IsActive bool `json:"isActive"`
}

func (h *Handler) AdminSetUserStatus(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		notConfigured(w, "user store")
		return
	}
	var payload userStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	userID := chi.URLParam(r, "userID")
	if err := h.users.SetUserActive(r.Context(), userID, payload.IsActive); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "isActive": payload.IsActive})
}

func (h *Handler) AdminListDrivers(w http.ResponseWriter, r *http.Request) {
	if h.drivers == nil {
		notConfigured(w, "driver store")
		return
	}
	page, limit, offset := pageLimit(r)
	filter := storage.DriverFilter{}
	if v := r.URL.Query().Get("verified"); v != "" {
		verified := v == "true"
		filter.Verified = &verified
	}

	total, err := h.drivers.CountDrivers(r.Context(), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	drivers, err := h.drivers.ListDrivers(r.Context(), filter, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if drivers == nil {
		drivers = []trip.Driver{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"drivers":    drivers,
		"pagination": paginate(page, limit, total),
	})
}

func (h *Handler) AdminVerifyDriver(w http.ResponseWriter, r *http.Request) {
	if h.drivers == nil {
		notConfigured(w, "driver store")
		return
	}
	driverUserID := chi.URLParam(r, "driverID")
	if err := h.drivers.SetDriverVerified(r.Context(), driverUserID, true); err != nil {
		respondDomainError(w, err)
		return
	}
	if h.notifier != nil {
		adminID := ""
		if id, ok := h.identity(r); ok {
			adminID = id.UserID
		}
		h.notifier.Send(r.Context(), driverUserID, adminID, trip.NotifyDriverVerified,
			"Driver verified",
			"Your driver account has been verified. You can now post rides.",
			nil, trip.PriorityHigh)
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type announcementPayload struct {
	Title    string                    `json:"title"`
	Message  string                    `json:"message"`
	Priority trip.NotificationPriority `json:"priority,omitempty"`
}

func (h *Handler) AdminAnnounce(w http.ResponseWriter, r *http.Request) {
	if h.users == nil || h.notifier == nil {
		notConfigured(w, "announcements")
		return
	}
	var payload announcementPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Title == "" || payload.Message == "" {
		respondError(w, http.StatusBadRequest, "title and message required")
		return
	}

	recipients, err := h.users.ActiveUserIDs(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	senderID := ""
	if id, ok := h.identity(r); ok {
		senderID = id.UserID
	}
	sent, err := h.notifier.Broadcast(r.Context(), recipients, senderID, payload.Title, payload.Message)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "sent": sent})
}

func (h *Handler) AdminAnalytics(w http.ResponseWriter, r *http.Request) {
	if h.admin == nil {
		notConfigured(w, "admin store")
		return
	}
	const months = 6
	ridesPerMonth, err := h.admin.MonthlyCounts(r.Context(), "rides", months)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	bookingsPerMonth, err := h.admin.MonthlyCounts(r.Context(), "ride_passengers", months)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	signupsPerMonth, err := h.admin.MonthlyCounts(r.Context(), "users", months)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	stats, err := h.admin.Dashboard(r.Context(), time.Now().AddDate(0, 0, -30))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ridesPerMonth":    ridesPerMonth,
		"bookingsPerMonth": bookingsPerMonth,
		"signupsPerMonth":  signupsPerMonth,
		"averageRating":    stats.AverageRating,
	})
}

func (h *Handler) AdminListRideEvents(w http.ResponseWriter, r *http.Request) {
	if h.admin == nil {
		notConfigured(w, "admin store")
		return
	}
	events, err := h.admin.ListRideEvents(r.Context(), chi.URLParam(r, "rideID"), 100)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if events == nil {
		events = []trip.RideEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}
