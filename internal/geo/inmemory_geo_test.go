package geo

import "testing"

func TestInMemoryGeoNearby(t *testing.T) {
	g := NewInMemoryGeo()
	// Around central Lagos.
	g.AddRide("close", 6.52, 3.38)
	g.AddRide("closer", 6.5244, 3.3792)
	g.AddRide("far", 9.0765, 7.3986) // Abuja, ~500 km away

	ids, err := g.Nearby(6.5244, 3.3792, 50, 10)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d rides, want 2: %v", len(ids), ids)
	}
	if ids[0] != "closer" {
		t.Errorf("first result = %s, want closer (sorted by distance)", ids[0])
	}
}

func TestInMemoryGeoLimit(t *testing.T) {
	g := NewInMemoryGeo()
	g.AddRide("a", 6.52, 3.38)
	g.AddRide("b", 6.53, 3.38)
	g.AddRide("c", 6.54, 3.38)

	ids, err := g.Nearby(6.52, 3.38, 100, 2)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("got %d rides, want limit 2", len(ids))
	}
}

func TestInMemoryGeoRemove(t *testing.T) {
	g := NewInMemoryGeo()
	g.AddRide("a", 6.52, 3.38)
	g.RemoveRide("a")

	ids, err := g.Nearby(6.52, 3.38, 100, 10)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("got %v after removal, want empty", ids)
	}
}
