package geo

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Index wraps a Redis GEO set keyed by ride origin coordinates.
type Index struct {
	client *redis.Client
	key    string
}

func NewIndex(client *redis.Client) *Index {
	return &Index{client: client, key: "rides:geo"}
}

// AddRide stores/updates the ride's origin in the index.
func (i *Index) AddRide(rideID string, lat, lon float64) error {
	return i.client.GeoAdd(context.Background(), i.key, &redis.GeoLocation{
		Name:      rideID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
}

func (i *Index) RemoveRide(rideID string) error {
	return i.client.ZRem(context.Background(), i.key, rideID).Err()
}

// Nearby returns ride IDs within radius km of the point, closest first.
func (i *Index) Nearby(lat, lon, radiusKM float64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	results, err := i.client.GeoSearchLocation(context.Background(), i.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     radiusKM,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Name)
	}
	return ids, nil
}
