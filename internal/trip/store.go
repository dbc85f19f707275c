package trip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps an in-memory view of rides with optional persistence behind
// it. All mutating operations serialize behind the store mutex; when the
// persistence layer also implements BookingTransaction / RatingTransaction,
// the capacity check and the rating aggregate update additionally run inside
// a single storage transaction, so concurrent requests from other processes
// cannot interleave either.
type Store struct {
	mu          sync.RWMutex
	rides       map[string]Ride
	persistence Persistence
	bookTx      BookingTransaction
	rateTx      RatingTransaction
	geo         GeoIndex

	// memory-mode rating state, used when no persistence is attached
	ratingsByRide map[string]map[string]Rating
	ratingsByUser map[string][]Rating
}

func NewStore() *Store {
	return NewStoreWithDeps(nil, nil)
}

func NewStoreWithDeps(p Persistence, g GeoIndex) *Store {
	return &Store{
		rides:         make(map[string]Ride),
		persistence:   p,
		bookTx:        toBookingTx(p),
		rateTx:        toRatingTx(p),
		geo:           g,
		ratingsByRide: make(map[string]map[string]Rating),
		ratingsByUser: make(map[string][]Rating),
	}
}

func toBookingTx(p Persistence) BookingTransaction {
	if tx, ok := p.(BookingTransaction); ok {
		return tx
	}
	return nil
}

func toRatingTx(p Persistence) RatingTransaction {
	if tx, ok := p.(RatingTransaction); ok {
		return tx
	}
	return nil
}

// CreateRide validates nothing beyond what the caller already checked; it
// assigns the id, persists, and indexes the origin for nearby search.
func (s *Store) CreateRide(ctx context.Context, ride Ride) (Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ride.ID = uuid.NewString()
	ride.Status = RideActive
	ride.CreatedAt = time.Now().UTC()
	ride.Passengers = nil

	if s.persistence != nil {
		if err := s.persistence.SaveRide(ctx, ride); err != nil {
			return Ride{}, fmt.Errorf("save ride: %w", err)
		}
	}
	s.rides[ride.ID] = ride
	if s.geo != nil {
		_ = s.geo.AddRide(ride.ID, ride.Origin.Latitude, ride.Origin.Longitude)
	}
	return ride, nil
}

// GetRide consults the in-memory view first, then persistence.
func (s *Store) GetRide(ctx context.Context, id string) (Ride, bool) {
	s.mu.RLock()
	ride, ok := s.rides[id]
	s.mu.RUnlock()
	if ok {
		return ride, true
	}
	if s.persistence != nil {
		dbRide, found, err := s.persistence.GetRide(ctx, id)
		if err == nil && found {
			s.mu.Lock()
			s.rides[id] = dbRide
			s.mu.Unlock()
			return dbRide, true
		}
	}
	return Ride{}, false
}

// BookRide appends a confirmed booking for the user if the ride still holds
// enough seats. Payment is assumed verified before this call; the record is
// written with paymentStatus already paid. The ride status is never touched.
func (s *Store) BookRide(ctx context.Context, rideID, userID string, seats int, paymentRef string) (Ride, Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ride, ok := s.getRideLocked(ctx, rideID)
	if !ok {
		return Ride{}, Booking{}, ErrRideNotFound
	}
	if RemainingSeats(ride) < seats {
		return Ride{}, Booking{}, ErrInsufficientSeats
	}

	booking := Booking{
		ID:               uuid.NewString(),
		UserID:           userID,
		SeatsBooked:      seats,
		Status:           BookingConfirmed,
		BookingTime:      time.Now().UTC(),
		PaymentReference: paymentRef,
		PaymentStatus:    PaymentPaid,
	}

	if s.bookTx != nil {
		// Re-checks capacity against the locked ride row; a concurrent
		// booking from another process surfaces here as ErrInsufficientSeats.
		if err := s.bookTx.BookSeats(ctx, rideID, booking); err != nil {
			return Ride{}, Booking{}, err
		}
	} else if s.persistence != nil {
		withBooking := ride
		withBooking.Passengers = append(append([]Booking(nil), ride.Passengers...), booking)
		if err := s.persistence.SaveRide(ctx, withBooking); err != nil {
			return Ride{}, Booking{}, fmt.Errorf("save ride: %w", err)
		}
	}

	ride.Passengers = append(ride.Passengers, booking)
	s.rides[rideID] = ride
	return ride, booking, nil
}

// SubmitRating records a rating from one ride participant about another and
// recomputes the rated user's aggregate from their full rating history.
func (s *Store) SubmitRating(ctx context.Context, rideID, raterID, ratedUserID string, stars int, review string, categories RatingCategories) (Rating, RatingAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ride, ok := s.getRideLocked(ctx, rideID)
	if !ok {
		return Rating{}, RatingAggregate{}, ErrRideNotFound
	}
	if !ride.IsParticipant(raterID) {
		return Rating{}, RatingAggregate{}, fmt.Errorf("rater: %w", ErrNotParticipant)
	}
	if !ride.IsParticipant(ratedUserID) {
		return Rating{}, RatingAggregate{}, fmt.Errorf("rated user: %w", ErrNotParticipant)
	}

	raterRole := RolePassenger
	if ride.DriverID == raterID {
		raterRole = RoleDriver
	}

	rating := Rating{
		ID:          uuid.NewString(),
		RideID:      rideID,
		RatedBy:     raterID,
		RatedUserID: ratedUserID,
		RaterRole:   raterRole,
		Stars:       stars,
		Review:      review,
		Categories:  categories,
		CreatedAt:   time.Now().UTC(),
	}

	if s.rateTx != nil {
		if exists, err := s.rateTx.RatingExists(ctx, rideID, raterID); err != nil {
			return Rating{}, RatingAggregate{}, fmt.Errorf("check rating: %w", err)
		} else if exists {
			return Rating{}, RatingAggregate{}, ErrRatingExists
		}
		agg, err := s.rateTx.SubmitRating(ctx, rating)
		if err != nil {
			return Rating{}, RatingAggregate{}, err
		}
		return rating, agg, nil
	}

	byRide := s.ratingsByRide[rideID]
	if _, dup := byRide[raterID]; dup {
		return Rating{}, RatingAggregate{}, ErrRatingExists
	}
	if byRide == nil {
		byRide = make(map[string]Rating)
		s.ratingsByRide[rideID] = byRide
	}
	byRide[raterID] = rating
	s.ratingsByUser[ratedUserID] = append(s.ratingsByUser[ratedUserID], rating)
	return rating, AggregateRatings(s.ratingsByUser[ratedUserID]), nil
}

// UserAggregate reports the memory-mode aggregate for a user. With
// persistence attached the aggregate lives on the user row instead.
func (s *Store) UserAggregate(userID string) RatingAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AggregateRatings(s.ratingsByUser[userID])
}

func (s *Store) getRideLocked(ctx context.Context, id string) (Ride, bool) {
	if ride, ok := s.rides[id]; ok {
		return ride, true
	}
	if s.persistence != nil {
		ride, found, err := s.persistence.GetRide(ctx, id)
		if err == nil && found {
			s.rides[id] = ride
			return ride, true
		}
	}
	return Ride{}, false
}
