package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"carpool/internal/trip"
)

// AttachRoutes wires HTTP routes to handlers.
func AttachRoutes(r chi.Router, deps Deps) {
	handler := &Handler{
		store:    deps.Store,
		hub:      deps.Hub,
		tokens:   deps.Tokens,
		users:    deps.Users,
		drivers:  deps.Drivers,
		ratings:  deps.Ratings,
		notes:    deps.Notes,
		admin:    deps.Admin,
		notifier: deps.Notifier,
		search:   deps.Search,
		geoIdx:   deps.GeoIndex,
		maps:     deps.Maps,
		payments: deps.Payments,
	}
	authed := tokenMiddleware(deps.Tokens)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/api/auth/register", handler.Register)
	r.Post("/api/auth/login", handler.Login)

	r.Group(func(pr chi.Router) {
		pr.Use(authed)
		pr.Get("/api/auth/me", handler.Me)

		pr.Get("/api/rides", handler.SearchRides)
		pr.Get("/api/rides/{rideID}", handler.GetRide)
		pr.With(requireRole(trip.RoleDriver, trip.RoleAdmin)).Post("/api/rides", handler.CreateRide)
		pr.Put("/api/rides/{rideID}/book", handler.BookRide)

		pr.Post("/api/ratings", handler.SubmitRating)
		pr.Get("/api/ratings", handler.ListRatings)
		pr.Get("/api/ratings/{ratingID}", handler.GetRating)

		pr.Post("/api/driver/register", handler.RegisterDriver)
		pr.With(requireRole(trip.RoleDriver, trip.RoleAdmin)).Get("/api/driver/profile", handler.DriverProfile)
		pr.With(requireRole(trip.RoleDriver, trip.RoleAdmin)).Put("/api/driver/profile", handler.UpdateDriverProfile)
		pr.With(requireRole(trip.RoleDriver, trip.RoleAdmin)).Get("/api/driver/verification-status", handler.DriverVerificationStatus)
		pr.With(requireRole(trip.RoleDriver, trip.RoleAdmin)).Get("/api/driver/stats", handler.DriverStats)

		pr.Post("/api/payments/initialize", handler.InitializePayment)
		pr.Get("/api/payments/verify/{reference}", handler.VerifyPayment)

		pr.Get("/api/location/geocode", handler.Geocode)
		pr.Get("/api/location/directions", handler.Directions)

		pr.Get("/api/notifications", handler.ListNotifications)
		pr.Get("/api/notifications/stats", handler.NotificationStats)
		pr.Put("/api/notifications/read-all", handler.MarkAllNotificationsRead)
		pr.Put("/api/notifications/{notificationID}/read", handler.MarkNotificationRead)
		pr.Delete("/api/notifications/{notificationID}", handler.DeleteNotification)
		pr.Post("/api/notifications/preferences", handler.UpdatePreferences)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authed, requireRole(trip.RoleAdmin))
		pr.Get("/api/admin/dashboard", handler.AdminDashboard)
		pr.Get("/api/admin/users", handler.AdminListUsers)
		pr.Put("/api/admin/users/{userID}/status", handler.AdminSetUserStatus)
		pr.Get("/api/admin/drivers", handler.AdminListDrivers)
		pr.Put("/api/admin/drivers/{driverID}/verify", handler.AdminVerifyDriver)
		pr.Post("/api/admin/announcements", handler.AdminAnnounce)
		pr.Get("/api/admin/analytics", handler.AdminAnalytics)
		pr.Get("/api/admin/rides/{rideID}/events", handler.AdminListRideEvents)
	})

	r.Get("/ws/rides/{rideID}", handler.RideWebsocket)
}
