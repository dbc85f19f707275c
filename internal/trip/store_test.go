package trip

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func newTestRide(t *testing.T, s *Store, seats int) Ride {
	t.Helper()
	ride, err := s.CreateRide(context.Background(), Ride{
		DriverID: "driver-1",
		Origin: Location{
			Address:   "Lagos",
			Latitude:  6.5244,
			Longitude: 3.3792,
		},
		Destination: Location{
			Address:   "Ibadan",
			Latitude:  7.3775,
			Longitude: 3.947,
		},
		DepartureTime:  time.Now().Add(24 * time.Hour),
		AvailableSeats: seats,
		PricePerSeat:   1500,
	})
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	return ride
}

func TestBookRide(t *testing.T) {
	ctx := context.Background()

	t.Run("success appends one confirmed paid booking", func(t *testing.T) {
		s := NewStore()
		ride := newTestRide(t, s, 4)

		updated, booking, err := s.BookRide(ctx, ride.ID, "rider-1", 2, "pay-1")
		if err != nil {
			t.Fatalf("BookRide: %v", err)
		}
		if len(updated.Passengers) != 1 {
			t.Fatalf("passengers = %d, want 1", len(updated.Passengers))
		}
		if booking.Status != BookingConfirmed {
			t.Errorf("booking status = %s, want confirmed", booking.Status)
		}
		if booking.PaymentStatus != PaymentPaid {
			t.Errorf("payment status = %s, want paid", booking.PaymentStatus)
		}
		if booking.PaymentReference != "pay-1" {
			t.Errorf("payment reference = %q", booking.PaymentReference)
		}
		if updated.Status != RideActive {
			t.Errorf("ride status = %s, booking must not transition it", updated.Status)
		}
		if got := RemainingSeats(updated); got != 2 {
			t.Errorf("remaining = %d, want 2", got)
		}
	})

	t.Run("unknown ride", func(t *testing.T) {
		s := NewStore()
		_, _, err := s.BookRide(ctx, "nope", "rider-1", 1, "pay-1")
		if !errors.Is(err, ErrRideNotFound) {
			t.Fatalf("err = %v, want ErrRideNotFound", err)
		}
	})

	t.Run("insufficient seats leaves ride unchanged", func(t *testing.T) {
		s := NewStore()
		ride := newTestRide(t, s, 2)

		_, _, err := s.BookRide(ctx, ride.ID, "rider-1", 3, "pay-1")
		if !errors.Is(err, ErrInsufficientSeats) {
			t.Fatalf("err = %v, want ErrInsufficientSeats", err)
		}
		after, _ := s.GetRide(ctx, ride.ID)
		if len(after.Passengers) != 0 {
			t.Errorf("passengers = %d after failed booking, want 0", len(after.Passengers))
		}
	})

	t.Run("exact capacity sequence", func(t *testing.T) {
		s := NewStore()
		ride := newTestRide(t, s, 3)

		if _, _, err := s.BookRide(ctx, ride.ID, "rider-1", 2, "pay-1"); err != nil {
			t.Fatalf("first booking: %v", err)
		}
		if _, _, err := s.BookRide(ctx, ride.ID, "rider-2", 2, "pay-2"); !errors.Is(err, ErrInsufficientSeats) {
			t.Fatalf("second booking err = %v, want ErrInsufficientSeats", err)
		}
		updated, _, err := s.BookRide(ctx, ride.ID, "rider-2", 1, "pay-3")
		if err != nil {
			t.Fatalf("third booking: %v", err)
		}
		if got := RemainingSeats(updated); got != 0 {
			t.Errorf("remaining = %d, want 0", got)
		}
	})

	t.Run("bookings preserve order", func(t *testing.T) {
		s := NewStore()
		ride := newTestRide(t, s, 4)
		for i, rider := range []string{"a", "b", "c"} {
			if _, _, err := s.BookRide(ctx, ride.ID, rider, 1, "pay"); err != nil {
				t.Fatalf("booking %d: %v", i, err)
			}
		}
		after, _ := s.GetRide(ctx, ride.ID)
		for i, want := range []string{"a", "b", "c"} {
			if after.Passengers[i].UserID != want {
				t.Errorf("passenger[%d] = %s, want %s", i, after.Passengers[i].UserID, want)
			}
		}
	})
}

func TestSubmitRating(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Store, Ride) {
		s := NewStore()
		ride := newTestRide(t, s, 3)
		if _, _, err := s.BookRide(ctx, ride.ID, "rider-1", 1, "pay-1"); err != nil {
			t.Fatalf("BookRide: %v", err)
		}
		ride, _ = s.GetRide(ctx, ride.ID)
		return s, ride
	}

	t.Run("passenger rates driver", func(t *testing.T) {
		s, ride := setup(t)
		rating, agg, err := s.SubmitRating(ctx, ride.ID, "rider-1", "driver-1", 5, "great", RatingCategories{})
		if err != nil {
			t.Fatalf("SubmitRating: %v", err)
		}
		if rating.RaterRole != RolePassenger {
			t.Errorf("rater role = %s, want passenger", rating.RaterRole)
		}
		if agg.Count != 1 || agg.Average != 5 {
			t.Errorf("aggregate = %+v, want {5 1}", agg)
		}
	})

	t.Run("driver rates passenger", func(t *testing.T) {
		s, ride := setup(t)
		rating, _, err := s.SubmitRating(ctx, ride.ID, "driver-1", "rider-1", 4, "", RatingCategories{})
		if err != nil {
			t.Fatalf("SubmitRating: %v", err)
		}
		if rating.RaterRole != RoleDriver {
			t.Errorf("rater role = %s, want driver", rating.RaterRole)
		}
	})

	t.Run("non-participant rater forbidden", func(t *testing.T) {
		s, ride := setup(t)
		_, _, err := s.SubmitRating(ctx, ride.ID, "stranger", "driver-1", 5, "", RatingCategories{})
		if !errors.Is(err, ErrNotParticipant) {
			t.Fatalf("err = %v, want ErrNotParticipant", err)
		}
	})

	t.Run("non-participant ratee forbidden", func(t *testing.T) {
		s, ride := setup(t)
		_, _, err := s.SubmitRating(ctx, ride.ID, "rider-1", "stranger", 5, "", RatingCategories{})
		if !errors.Is(err, ErrNotParticipant) {
			t.Fatalf("err = %v, want ErrNotParticipant", err)
		}
	})

	t.Run("unknown ride", func(t *testing.T) {
		s, _ := setup(t)
		_, _, err := s.SubmitRating(ctx, "nope", "rider-1", "driver-1", 5, "", RatingCategories{})
		if !errors.Is(err, ErrRideNotFound) {
			t.Fatalf("err = %v, want ErrRideNotFound", err)
		}
	})

	t.Run("duplicate rating conflicts and aggregate untouched", func(t *testing.T) {
		s, ride := setup(t)
		if _, _, err := s.SubmitRating(ctx, ride.ID, "rider-1", "driver-1", 5, "", RatingCategories{}); err != nil {
			t.Fatalf("first rating: %v", err)
		}
		_, _, err := s.SubmitRating(ctx, ride.ID, "rider-1", "driver-1", 1, "", RatingCategories{})
		if !errors.Is(err, ErrRatingExists) {
			t.Fatalf("err = %v, want ErrRatingExists", err)
		}
		if agg := s.UserAggregate("driver-1"); agg.Count != 1 || agg.Average != 5 {
			t.Errorf("aggregate after conflict = %+v, want {5 1}", agg)
		}
	})

	t.Run("aggregate across rides", func(t *testing.T) {
		s := NewStore()
		stars := []int{5, 4, 4, 3}
		for i, star := range stars {
			ride := newTestRide(t, s, 2)
			rider := "rider-1"
			if _, _, err := s.BookRide(ctx, ride.ID, rider, 1, "pay"); err != nil {
				t.Fatalf("booking %d: %v", i, err)
			}
			if _, _, err := s.SubmitRating(ctx, ride.ID, rider, "driver-1", star, "", RatingCategories{}); err != nil {
				t.Fatalf("rating %d: %v", i, err)
			}
		}
		agg := s.UserAggregate("driver-1")
		if agg.Count != len(stars) {
			t.Fatalf("count = %d, want %d", agg.Count, len(stars))
		}
		if want := 16.0 / 4.0; math.Abs(agg.Average-want) > 1e-9 {
			t.Errorf("average = %v, want %v", agg.Average, want)
		}
	})
}
