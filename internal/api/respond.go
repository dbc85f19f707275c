package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"carpool/internal/trip"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is logged and reported as a generic 500.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trip.ErrRideNotFound),
		errors.Is(err, trip.ErrUserNotFound),
		errors.Is(err, trip.ErrRatingNotFound),
		errors.Is(err, trip.ErrNotificationNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrNotParticipant):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, trip.ErrRatingExists),
		errors.Is(err, trip.ErrEmailTaken),
		errors.Is(err, trip.ErrAlreadyDriver),
		errors.Is(err, trip.ErrDuplicateVehicle):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, trip.ErrInsufficientSeats):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, trip.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf(`{"event":"internal_error","error":%q}`, err.Error())
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// pagination is the list envelope shared by ratings, notifications, and the
// admin listings.
type pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"total"`
	HasMore     bool `json:"hasMore"`
}

func paginate(page, limit, total int) pagination {
	totalPages := (total + limit - 1) / limit
	return pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		HasMore:     page < totalPages,
	}
}
