package trip

import (
	"context"
	"time"
)

type RideStatus string

const (
	RideActive     RideStatus = "active"
	RideInProgress RideStatus = "in-progress"
	RideCompleted  RideStatus = "completed"
	RideCancelled  RideStatus = "cancelled"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

// Identity is the resolved caller of a request, as extracted from its token.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Booking is one passenger's reservation of seats on a ride. The passengers
// slice on a Ride keeps bookings in insertion order, which is booking order.
type Booking struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	SeatsBooked      int           `json:"seatsBooked"`
	Status           BookingStatus `json:"status"`
	BookingTime      time.Time     `json:"bookingTime"`
	PaymentReference string        `json:"paymentReference,omitempty"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
}

type Ride struct {
	ID             string     `json:"id"`
	DriverID       string     `json:"driverId"`
	Origin         Location   `json:"origin"`
	Destination    Location   `json:"destination"`
	DepartureTime  time.Time  `json:"departureTime"`
	AvailableSeats int        `json:"availableSeats"`
	PricePerSeat   float64    `json:"pricePerSeat"`
	Passengers     []Booking  `json:"passengers"`
	Status         RideStatus `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// HasPassenger reports whether the user appears in the passengers sequence,
// regardless of booking status.
func (r Ride) HasPassenger(userID string) bool {
	for _, b := range r.Passengers {
		if b.UserID == userID {
			return true
		}
	}
	return false
}

// IsParticipant reports whether the user is the ride's driver or one of its
// passengers.
func (r Ride) IsParticipant(userID string) bool {
	return r.DriverID == userID || r.HasPassenger(userID)
}

// RatingCategories holds optional per-aspect sub-scores, each 1-5 when set.
type RatingCategories struct {
	Punctuality   int `json:"punctuality,omitempty"`
	Communication int `json:"communication,omitempty"`
	Cleanliness   int `json:"cleanliness,omitempty"`
	Safety        int `json:"safety,omitempty"`
	Overall       int `json:"overall,omitempty"`
}

type Rating struct {
	ID          string           `json:"id"`
	RideID      string           `json:"rideId"`
	RatedBy     string           `json:"ratedBy"`
	RatedUserID string           `json:"ratedUserId"`
	RaterRole   Role             `json:"raterRole"`
	Stars       int              `json:"rating"`
	Review      string           `json:"review,omitempty"`
	Categories  RatingCategories `json:"categories,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// RatingAggregate is a user's running average score and count.
type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type RideEvent struct {
	RideID    string    `json:"rideId"`
	Type      string    `json:"type"`
	Payload   []byte    `json:"payload,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Persistence loads and stores rides.
type Persistence interface {
	SaveRide(ctx context.Context, ride Ride) error
	GetRide(ctx context.Context, id string) (Ride, bool, error)
}

// BookingTransaction appends a booking atomically: the remaining-seat check
// is re-run against the locked ride row inside the same transaction that
// inserts the passenger record, so two concurrent bookings cannot both pass
// the capacity check.
type BookingTransaction interface {
	BookSeats(ctx context.Context, rideID string, booking Booking) error
}

// RatingTransaction inserts a rating and recomputes the rated user's
// aggregate from all of their ratings in a single transaction.
type RatingTransaction interface {
	SubmitRating(ctx context.Context, rating Rating) (RatingAggregate, error)
	RatingExists(ctx context.Context, rideID, ratedBy string) (bool, error)
}

// RideSearch lists open rides matching optional filters.
type RideSearch interface {
	SearchRides(ctx context.Context, q RideQuery) ([]Ride, error)
}

// RideQuery filters the ride search. Zero values mean "no filter".
type RideQuery struct {
	Origin      string
	Destination string
	DateFrom    time.Time
	DateTo      time.Time
	IDs         []string // restrict to these ids (geo index pre-filter)
	Limit       int
}

// GeoIndex indexes ride origins for nearby lookups.
type GeoIndex interface {
	AddRide(rideID string, lat, lon float64) error
	RemoveRide(rideID string) error
	Nearby(lat, lon, radiusKM float64, limit int) ([]string, error)
}
