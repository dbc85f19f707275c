package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carpool/internal/trip"
)

type ratingPayload struct {
	RideID      string                `json:"rideId"`
	RatedUserID string                `json:"ratedUserId"`
	Rating      int                   `json:"rating"`
	Review      string                `json:"review,omitempty"`
	Categories  trip.RatingCategories `json:"categories,omitempty"`
	RatedBy     string                `json:"ratedBy,omitempty"`
}

func validCategory(name string, v int) error {
	if v != 0 && (v < 1 || v > 5) {
		return fmt.Errorf("%s must be between 1 and 5", name)
	}
	return nil
}

func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	var payload ratingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.RideID == "" || payload.RatedUserID == "" {
		respondError(w, http.StatusBadRequest, "rideId and ratedUserId required")
		return
	}
	if payload.Rating < 1 || payload.Rating > 5 {
		respondError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	if len(payload.Review) > 500 {
		respondError(w, http.StatusBadRequest, "review must be at most 500 characters")
		return
	}
	for _, c := range []struct {
		name string
		v    int
	}{
		{"punctuality", payload.Categories.Punctuality},
		{"communication", payload.Categories.Communication},
		{"cleanliness", payload.Categories.Cleanliness},
		{"safety", payload.Categories.Safety},
		{"overall", payload.Categories.Overall},
	} {
		if err := validCategory(c.name, c.v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	raterID := h.callerID(r, payload.RatedBy)
	if raterID == "" {
		respondError(w, http.StatusBadRequest, "ratedBy required")
		return
	}
	if raterID == payload.RatedUserID {
		respondError(w, http.StatusBadRequest, "cannot rate yourself")
		return
	}

	rating, agg, err := h.store.SubmitRating(r.Context(), payload.RideID, raterID, payload.RatedUserID,
		payload.Rating, payload.Review, payload.Categories)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if h.notifier != nil {
		h.notifier.Send(r.Context(), payload.RatedUserID, raterID, trip.NotifyRatingReceived,
			"New rating",
			fmt.Sprintf("You received a %d-star rating", rating.Stars),
			map[string]any{"rideId": rating.RideID, "ratingId": rating.ID},
			trip.PriorityLow)
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"rating":    rating,
		"aggregate": agg,
	})
}

func (h *Handler) ListRatings(w http.ResponseWriter, r *http.Request) {
	if h.ratings == nil {
		notConfigured(w, "rating store")
		return
	}
	userID := r.URL.Query().Get("userId")
	page, limit, offset := pageLimit(r)

	total, err := h.ratings.CountRatings(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	ratings, err := h.ratings.ListRatings(r.Context(), userID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if ratings == nil {
		ratings = []trip.Rating{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ratings":    ratings,
		"pagination": paginate(page, limit, total),
	})
}

func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	if h.ratings == nil {
		notConfigured(w, "rating store")
		return
	}
	rating, err := h.ratings.GetRating(r.Context(), chi.URLParam(r, "ratingID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rating)
}
