package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"carpool/internal/trip"
)

func TestGeocode(t *testing.T) {
	var calls int32
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/maps/api/geocode/json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("address") == "" {
			t.Error("address query missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "Ikeja, Lagos, Nigeria",
				"geometry": {"location": {"lat": 6.6018, "lng": 3.3515}}
			}]
		}`))
	}))
	defer stub.Close()

	c := NewMapsClientWithBase("test-key", stub.URL, NewMemoryCache())
	loc, err := c.Geocode(context.Background(), "Ikeja")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if loc.Address != "Ikeja, Lagos, Nigeria" {
		t.Errorf("address = %q", loc.Address)
	}
	if loc.Latitude != 6.6018 || loc.Longitude != 3.3515 {
		t.Errorf("coords = %v,%v", loc.Latitude, loc.Longitude)
	}

	// Second call for the same address must come from the cache.
	if _, err := c.Geocode(context.Background(), "Ikeja"); err != nil {
		t.Fatalf("cached Geocode: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestGeocodeNoResults(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer stub.Close()

	c := NewMapsClientWithBase("test-key", stub.URL, nil)
	if _, err := c.Geocode(context.Background(), "nowhere"); err == nil {
		t.Fatal("expected error for zero results")
	}
}

func TestDirections(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/directions/json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"status": "OK",
			"routes": [{
				"summary": "Lagos-Ibadan Expy",
				"legs": [
					{"distance": {"value": 100000}, "duration": {"value": 4500}},
					{"distance": {"value": 28000}, "duration": {"value": 1500}}
				],
				"overview_polyline": {"points": "abc123"}
			}]
		}`))
	}))
	defer stub.Close()

	c := NewMapsClientWithBase("test-key", stub.URL, nil)
	route, err := c.Directions(context.Background(),
		trip.Location{Latitude: 6.5244, Longitude: 3.3792},
		trip.Location{Latitude: 7.3775, Longitude: 3.947})
	if err != nil {
		t.Fatalf("Directions: %v", err)
	}
	if route.DistanceMeters != 128000 {
		t.Errorf("distance = %d, want leg sum 128000", route.DistanceMeters)
	}
	if route.DurationSeconds != 6000 {
		t.Errorf("duration = %d, want leg sum 6000", route.DurationSeconds)
	}
	if route.Polyline != "abc123" {
		t.Errorf("polyline = %q", route.Polyline)
	}
}
