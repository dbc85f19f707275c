package api

import (
	"errors"
	"net/http"

	"carpool/internal/geo"
)

func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	if h.maps == nil {
		notConfigured(w, "geocoding")
		return
	}
	address := r.URL.Query().Get("address")
	if address == "" {
		respondError(w, http.StatusBadRequest, "address required")
		return
	}
	loc, err := h.maps.Geocode(r.Context(), address)
	if err != nil {
		if errors.Is(err, geo.ErrNoResults) {
			respondError(w, http.StatusNotFound, "no results for address")
			return
		}
		respondError(w, http.StatusBadGateway, "geocoding failed")
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

func (h *Handler) Directions(w http.ResponseWriter, r *http.Request) {
	if h.maps == nil {
		notConfigured(w, "geocoding")
		return
	}
	origin := r.URL.Query().Get("origin")
	destination := r.URL.Query().Get("destination")
	if origin == "" || destination == "" {
		respondError(w, http.StatusBadRequest, "origin and destination required")
		return
	}

	// Addresses are geocoded first so callers can pass free-form text.
	from, err := h.maps.Geocode(r.Context(), origin)
	if err != nil {
		h.respondGeoError(w, err, "origin")
		return
	}
	to, err := h.maps.Geocode(r.Context(), destination)
	if err != nil {
		h.respondGeoError(w, err, "destination")
		return
	}
	route, err := h.maps.Directions(r.Context(), from, to)
	if err != nil {
		h.respondGeoError(w, err, "route")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"origin":      from,
		"destination": to,
		"route":       route,
	})
}

func (h *Handler) respondGeoError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, geo.ErrNoResults) {
		respondError(w, http.StatusNotFound, "no results for "+what)
		return
	}
	respondError(w, http.StatusBadGateway, "directions failed")
}
