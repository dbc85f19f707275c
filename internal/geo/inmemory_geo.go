package geo

import (
	"math"
	"sort"
	"sync"
)

// InMemoryGeo provides a simple fallback geo index.
type InMemoryGeo struct {
	mu     sync.RWMutex
	coords map[string][2]float64
}

func NewInMemoryGeo() *InMemoryGeo {
	return &InMemoryGeo{coords: make(map[string][2]float64)}
}

func (g *InMemoryGeo) AddRide(rideID string, lat, lon float64) error {
	g.mu.Lock()
	g.coords[rideID] = [2]float64{lat, lon}
	g.mu.Unlock()
	return nil
}

func (g *InMemoryGeo) RemoveRide(rideID string) error {
	g.mu.Lock()
	delete(g.coords, rideID)
	g.mu.Unlock()
	return nil
}

// Nearby returns ride IDs within radius km of the point, closest first.
func (g *InMemoryGeo) Nearby(lat, lon, radiusKM float64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	type hit struct {
		id   string
		dist float64
	}
	var hits []hit
	for id, pt := range g.coords {
		dist := haversineKM(lat, lon, pt[0], pt[1])
		if dist <= radiusKM {
			hits = append(hits, hit{id, dist})
		}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	calc := sinLat*sinLat + math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*sinLon*sinLon
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(calc))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
