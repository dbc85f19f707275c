package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"carpool/internal/auth"
	"carpool/internal/geo"
	"carpool/internal/notify"
	"carpool/internal/payments"
	"carpool/internal/storage"
	"carpool/internal/trip"
)

// UserDB persists accounts. Satisfied by storage.Postgres.
type UserDB interface {
	CreateUser(ctx context.Context, u trip.User) error
	GetUser(ctx context.Context, id string) (trip.User, error)
	GetUserByEmail(ctx context.Context, email string) (trip.User, error)
	SetUserActive(ctx context.Context, id string, active bool) error
	UpdatePreferences(ctx context.Context, id string, email, push, sms *bool) (trip.NotificationPreferences, error)
	ListUsers(ctx context.Context, f storage.UserFilter, limit, offset int) ([]trip.User, error)
	CountUsers(ctx context.Context, f storage.UserFilter) (int, error)
	ActiveUserIDs(ctx context.Context) ([]string, error)
}

// DriverDB persists driver records.
type DriverDB interface {
	CreateDriver(ctx context.Context, d trip.Driver) error
	GetDriverByUserID(ctx context.Context, userID string) (trip.Driver, error)
	UpdateDriverVehicle(ctx context.Context, userID string, v trip.Vehicle) (trip.Driver, error)
	SetDriverVerified(ctx context.Context, userID string, verified bool) error
	ListDrivers(ctx context.Context, f storage.DriverFilter, limit, offset int) ([]trip.Driver, error)
	CountDrivers(ctx context.Context, f storage.DriverFilter) (int, error)
	CountRidesByDriver(ctx context.Context, userID string) (total, completed int, err error)
	SeatsSoldByDriver(ctx context.Context, userID string) (int, error)
}

// RatingDB reads persisted ratings. Writes go through the trip.Store.
type RatingDB interface {
	GetRating(ctx context.Context, id string) (trip.Rating, error)
	ListRatings(ctx context.Context, userID string, limit, offset int) ([]trip.Rating, error)
	CountRatings(ctx context.Context, userID string) (int, error)
}

// NotificationDB reads and mutates a user's notification rows.
type NotificationDB interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]trip.Notification, error)
	CountNotifications(ctx context.Context, userID string, unreadOnly bool) (int, error)
	NotificationStats(ctx context.Context, userID string) (total, unread int, byType map[string]int, err error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, userID, id string) error
}

// AdminDB serves the dashboard aggregates.
type AdminDB interface {
	Dashboard(ctx context.Context, since time.Time) (storage.DashboardStats, error)
	MonthlyCounts(ctx context.Context, table string, months int) ([]storage.MonthlyBucket, error)
	ListRecentRides(ctx context.Context, limit int) ([]trip.Ride, error)
	ListRideEvents(ctx context.Context, rideID string, limit int) ([]trip.RideEvent, error)
}

type Handler struct {
	store    *trip.Store
	hub      *trip.Hub
	tokens   *auth.Manager
	users    UserDB
	drivers  DriverDB
	ratings  RatingDB
	notes    NotificationDB
	admin    AdminDB
	notifier *notify.Notifier
	search   trip.RideSearch
	geoIdx   trip.GeoIndex
	maps     *geo.MapsClient
	payments *payments.Client
}

// Deps bundles everything AttachRoutes needs. Optional members may be nil;
// the routes they back respond 503 instead.
type Deps struct {
	Store    *trip.Store
	Hub      *trip.Hub
	Tokens   *auth.Manager
	Users    UserDB
	Drivers  DriverDB
	Ratings  RatingDB
	Notes    NotificationDB
	Admin    AdminDB
	Notifier *notify.Notifier
	Search   trip.RideSearch
	GeoIndex trip.GeoIndex
	Maps     *geo.MapsClient
	Payments *payments.Client
}

func (h *Handler) identity(r *http.Request) (trip.Identity, bool) {
	return identityFromContext(r.Context())
}

// callerID prefers the authenticated identity and falls back to the given
// value when the server runs without token auth.
func (h *Handler) callerID(r *http.Request, fallback string) string {
	if id, ok := h.identity(r); ok {
		return id.UserID
	}
	return fallback
}

func pageLimit(r *http.Request) (page, limit, offset int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

func notConfigured(w http.ResponseWriter, what string) {
	respondError(w, http.StatusServiceUnavailable, what+" not configured")
}
