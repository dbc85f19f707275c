package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"carpool/internal/trip"
)

type driverRegisterPayload struct {
	LicenseNumber string       `json:"licenseNumber"`
	Vehicle       trip.Vehicle `json:"vehicle"`
}

func (h *Handler) RegisterDriver(w http.ResponseWriter, r *http.Request) {
	if h.drivers == nil {
		notConfigured(w, "driver store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var payload driverRegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.LicenseNumber == "" {
		respondError(w, http.StatusBadRequest, "licenseNumber required")
		return
	}
	v := payload.Vehicle
	if v.Make == "" || v.Model == "" || v.LicensePlate == "" {
		respondError(w, http.StatusBadRequest, "vehicle make, model, and licensePlate required")
		return
	}
	if v.Year < 1980 || v.Year > time.Now().Year()+1 {
		respondError(w, http.StatusBadRequest, "vehicle year out of range")
		return
	}

	now := time.Now().UTC()
	driver := trip.Driver{
		ID:            uuid.NewString(),
		UserID:        id.UserID,
		LicenseNumber: payload.LicenseNumber,
		Vehicle:       v,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.drivers.CreateDriver(r.Context(), driver); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, driver)
}

func (h *Handler) DriverProfile(w http.ResponseWriter, r *http.Request) {
	if h.drivers == nil {
		notConfigured(w, "driver store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	driver, err := h.drivers.GetDriverByUserID(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, driver)
}

type driverUpdatePayload struct {
	Vehicle trip.Vehicle `json:"vehicle"`
}

func (h *Handler) UpdateDriverProfile(w http.ResponseWriter, r *http.Request) {
	if h.drivers == nil {
		notConfigured(w, "driver store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var payload driverUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Vehicle.Make == "" || payload.Vehicle.Model == "" || payload.Vehicle.LicensePlate == "" {
		respondError(w, http.StatusBadRequest, "vehicle make, model, and licensePlate required")
		return
	}
	driver, err := h.drivers.UpdateDriverVehicle(r.Context(), id.UserID, payload.Vehicle)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, driver)
}

func (h *Handler) DriverVerificationStatus(w http.ResponseWriter, r *http.Request) {
	if h.drivers == nil {
		notConfigured(w, "driver store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	driver, err := h.drivers.GetDriverByUserID(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"isVerified": driver.IsVerified,
	})
}

func (h *Handler) DriverStats(w http.ResponseWriter, r *http.Request) {
	if h.drivers == nil {
		notConfigured(w, "driver store")
		return
	}
	id, ok := h.identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	driver, err := h.drivers.GetDriverByUserID(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	total, completed, err := h.drivers.CountRidesByDriver(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	seatsSold, err := h.drivers.SeatsSoldByDriver(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	agg := trip.RatingAggregate{}
	if h.users != nil {
		if user, err := h.users.GetUser(r.Context(), id.UserID); err == nil {
			agg = user.Rating
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ridesPosted":    total,
		"ridesCompleted": completed,
		"seatsSold":      seatsSold,
		"rating":         agg,
		"isVerified":     driver.IsVerified,
	})
}
