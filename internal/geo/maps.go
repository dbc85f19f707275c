package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"carpool/internal/trip"
)

var ErrNoResults = errors.New("geo: no results")

// Cache stores geocoding responses keyed by normalized query.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// MapsClient talks to the Google Maps web services. The base URL is
// injectable for tests.
type MapsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      Cache
}

func NewMapsClient(apiKey string, cache Cache) *MapsClient {
	return &MapsClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://maps.googleapis.com",
		apiKey:     apiKey,
		cache:      cache,
	}
}

// NewMapsClientWithBase is used by tests to point at a stub server.
func NewMapsClientWithBase(apiKey, baseURL string, cache Cache) *MapsClient {
	c := NewMapsClient(apiKey, cache)
	c.baseURL = baseURL
	return c
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a free-form address to coordinates. Responses are cached
// for a day; addresses rarely move.
func (c *MapsClient) Geocode(ctx context.Context, address string) (trip.Location, error) {
	cacheKey := "geocode:" + address
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, cacheKey); ok {
			var loc trip.Location
			if err := json.Unmarshal([]byte(cached), &loc); err == nil {
				return loc, nil
			}
		}
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)
	var resp geocodeResponse
	if err := c.getJSON(ctx, "/maps/api/geocode/json?"+q.Encode(), &resp); err != nil {
		return trip.Location{}, err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return trip.Location{}, fmt.Errorf("%w: geocode status %s", ErrNoResults, resp.Status)
	}
	loc := trip.Location{
		Address:   resp.Results[0].FormattedAddress,
		Latitude:  resp.Results[0].Geometry.Location.Lat,
		Longitude: resp.Results[0].Geometry.Location.Lng,
	}

	if c.cache != nil {
		if raw, err := json.Marshal(loc); err == nil {
			c.cache.Set(ctx, cacheKey, string(raw), 24*time.Hour)
		}
	}
	return loc, nil
}

// Route summarizes one driving route between two points.
type Route struct {
	DistanceMeters  int    `json:"distanceMeters"`
	DurationSeconds int    `json:"durationSeconds"`
	Polyline        string `json:"polyline,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

func (c *MapsClient) Directions(ctx context.Context, origin, destination trip.Location) (Route, error) {
	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude))
	q.Set("destination", fmt.Sprintf("%f,%f", destination.Latitude, destination.Longitude))
	q.Set("key", c.apiKey)
	var resp directionsResponse
	if err := c.getJSON(ctx, "/maps/api/directions/json?"+q.Encode(), &resp); err != nil {
		return Route{}, err
	}
	if resp.Status != "OK" || len(resp.Routes) == 0 {
		return Route{}, fmt.Errorf("%w: directions status %s", ErrNoResults, resp.Status)
	}
	r := resp.Routes[0]
	route := Route{
		Polyline: r.OverviewPolyline.Points,
		Summary:  r.Summary,
	}
	for _, leg := range r.Legs {
		route.DistanceMeters += leg.Distance.Value
		route.DurationSeconds += leg.Duration.Value
	}
	return route, nil
}

func (c *MapsClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("maps request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("maps request: unexpected status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
