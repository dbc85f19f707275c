package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"carpool/internal/trip"
)

type ridePayload struct {
	Origin         trip.Location `json:"origin"`
	Destination    trip.Location `json:"destination"`
	DepartureTime  time.Time     `json:"departureTime"`
	AvailableSeats int           `json:"availableSeats"`
	PricePerSeat   float64       `json:"pricePerSeat"`
	Notes          string        `json:"notes,omitempty"`
}

func validLocation(l trip.Location) error {
	if l.Address == "" {
		return fmt.Errorf("address required")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude out of range")
	}
	return nil
}

func (h *Handler) CreateRide(w http.ResponseWriter, r *http.Request) {
	var payload ridePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validLocation(payload.Origin); err != nil {
		respondError(w, http.StatusBadRequest, "origin: "+err.Error())
		return
	}
	if err := validLocation(payload.Destination); err != nil {
		respondError(w, http.StatusBadRequest, "destination: "+err.Error())
		return
	}
	if payload.DepartureTime.IsZero() || payload.DepartureTime.Before(time.Now()) {
		respondError(w, http.StatusBadRequest, "departure time must be in the future")
		return
	}
	if payload.AvailableSeats < 1 || payload.AvailableSeats > 8 {
		respondError(w, http.StatusBadRequest, "available seats must be between 1 and 8")
		return
	}
	if payload.PricePerSeat < 0 {
		respondError(w, http.StatusBadRequest, "price per seat cannot be negative")
		return
	}

	ride, err := h.store.CreateRide(r.Context(), trip.Ride{
		DriverID:       h.callerID(r, r.URL.Query().Get("driverId")),
		Origin:         payload.Origin,
		Destination:    payload.Destination,
		DepartureTime:  payload.DepartureTime,
		AvailableSeats: payload.AvailableSeats,
		PricePerSeat:   payload.PricePerSeat,
		Notes:          payload.Notes,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ride)
}

// SearchRides lists active rides matching optional filters. With
// nearLat/nearLng/radiusKm the geo index pre-filters by origin distance.
func (h *Handler) SearchRides(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		notConfigured(w, "ride search")
		return
	}
	q := trip.RideQuery{
		Origin:      r.URL.Query().Get("origin"),
		Destination: r.URL.Query().Get("destination"),
	}
	if d := r.URL.Query().Get("date"); d != "" {
		from, err := time.Parse("2006-01-02", d)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		q.DateFrom = from
	}
	if lat := r.URL.Query().Get("nearLat"); lat != "" && h.geoIdx != nil {
		nearLat, err1 := strconv.ParseFloat(lat, 64)
		nearLng, err2 := strconv.ParseFloat(r.URL.Query().Get("nearLng"), 64)
		if err1 != nil || err2 != nil {
			respondError(w, http.StatusBadRequest, "nearLat and nearLng must be numbers")
			return
		}
		radiusKM := 25.0
		if rad := r.URL.Query().Get("radiusKm"); rad != "" {
			if parsed, err := strconv.ParseFloat(rad, 64); err == nil && parsed > 0 {
				radiusKM = parsed
			}
		}
		ids, err := h.geoIdx.Nearby(nearLat, nearLng, radiusKM, 50)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if len(ids) == 0 {
			respondJSON(w, http.StatusOK, map[string]any{"rides": []trip.Ride{}})
			return
		}
		q.IDs = ids
	}

	rides, err := h.search.SearchRides(r.Context(), q)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if rides == nil {
		rides = []trip.Ride{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"rides": rides})
}

func (h *Handler) GetRide(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "rideID")
	ride, ok := h.store.GetRide(r.Context(), rideID)
	if !ok {
		respondError(w, http.StatusNotFound, "ride not found")
		return
	}
	respondJSON(w, http.StatusOK, ride)
}

type bookPayload struct {
	SeatsBooked      int    `json:"seatsBooked"`
	PaymentReference string `json:"paymentReference"`
	UserID           string `json:"userId,omitempty"`
}

type bookResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Ride    trip.Ride `json:"ride"`
}

func (h *Handler) BookRide(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "rideID")
	var payload bookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.SeatsBooked < 1 {
		respondError(w, http.StatusBadRequest, "seatsBooked must be at least 1")
		return
	}
	if payload.PaymentReference == "" {
		respondError(w, http.StatusBadRequest, "paymentReference required")
		return
	}
	userID := h.callerID(r, payload.UserID)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId required")
		return
	}

	ride, booking, err := h.store.BookRide(r.Context(), rideID, userID, payload.SeatsBooked, payload.PaymentReference)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if h.hub != nil {
		h.hub.PublishBooking(ride, booking)
	}
	if h.notifier != nil {
		h.notifier.Send(r.Context(), ride.DriverID, userID, trip.NotifyRideBooked,
			"New booking",
			fmt.Sprintf("%d seat(s) booked on your ride to %s", booking.SeatsBooked, ride.Destination.Address),
			map[string]any{"rideId": ride.ID, "bookingId": booking.ID},
			trip.PriorityHigh)
	}
	respondJSON(w, http.StatusOK, bookResponse{
		Success: true,
		Message: "booking confirmed",
		Ride:    ride,
	})
}

func (h *Handler) RideWebsocket(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "rideID")
	ride, ok := h.store.GetRide(r.Context(), rideID)
	if !ok {
		respondError(w, http.StatusNotFound, "ride not found")
		return
	}
	if h.tokens != nil {
		claims, err := h.tokens.ParseToken(parseToken(r))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if claims.Role != trip.RoleAdmin && !ride.IsParticipant(claims.UserID) {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
	}
	h.hub.ServeRide(w, r, ride.ID)
}
