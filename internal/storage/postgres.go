// Package storage implements Postgres persistence for the carpool backend
// using pgx directly. The booking and rating paths run inside transactions;
// everything else is plain statement-per-call.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"carpool/internal/trip"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func DefaultPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = time.Hour
	return pgxpool.NewWithConfig(ctx, cfg)
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// SaveRide upserts the ride row. Passenger records are written only through
// BookSeats; they are never replaced wholesale.
func (p *Postgres) SaveRide(ctx context.Context, r trip.Ride) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO rides (id, driver_id, origin_address, origin_lat, origin_lng,
	destination_address, destination_lat, destination_lng,
	departure_time, available_seats, price_per_seat, status, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	departure_time = EXCLUDED.departure_time,
	available_seats = EXCLUDED.available_seats,
	price_per_seat = EXCLUDED.price_per_seat,
	notes = EXCLUDED.notes
`, r.ID, r.DriverID, r.Origin.Address, r.Origin.Latitude, r.Origin.Longitude,
		r.Destination.Address, r.Destination.Latitude, r.Destination.Longitude,
		r.DepartureTime, r.AvailableSeats, r.PricePerSeat, r.Status, nullable(r.Notes), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert ride: %w", err)
	}
	return nil
}

func (p *Postgres) GetRide(ctx context.Context, id string) (trip.Ride, bool, error) {
	ride, err := p.scanRide(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.Ride{}, false, nil
		}
		return trip.Ride{}, false, err
	}
	passengers, err := p.listPassengers(ctx, id)
	if err != nil {
		return trip.Ride{}, false, err
	}
	ride.Passengers = passengers
	return ride, true, nil
}

func (p *Postgres) scanRide(ctx context.Context, id string) (trip.Ride, error) {
	var (
		r     trip.Ride
		notes *string
	)
	err := p.pool.QueryRow(ctx, `
SELECT id, driver_id, origin_address, origin_lat, origin_lng,
	destination_address, destination_lat, destination_lng,
	departure_time, available_seats, price_per_seat, status, notes, created_at
FROM rides WHERE id = $1
`, id).Scan(&r.ID, &r.DriverID, &r.Origin.Address, &r.Origin.Latitude, &r.Origin.Longitude,
		&r.Destination.Address, &r.Destination.Latitude, &r.Destination.Longitude,
		&r.DepartureTime, &r.AvailableSeats, &r.PricePerSeat, &r.Status, &notes, &r.CreatedAt)
	if err != nil {
		return trip.Ride{}, err
	}
	if notes != nil {
		r.Notes = *notes
	}
	return r, nil
}

func (p *Postgres) listPassengers(ctx context.Context, rideID string) ([]trip.Booking, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, seats_booked, status, booking_time, payment_reference, payment_status
FROM ride_passengers
WHERE ride_id = $1
ORDER BY seq ASC
`, rideID)
	if err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	defer rows.Close()
	var out []trip.Booking
	for rows.Next() {
		var (
			b      trip.Booking
			payRef *string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.SeatsBooked, &b.Status, &b.BookingTime, &payRef, &b.PaymentStatus); err != nil {
			return nil, fmt.Errorf("scan passenger: %w", err)
		}
		if payRef != nil {
			b.PaymentReference = *payRef
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BookSeats appends the passenger record atomically. The ride row is locked
// with SELECT ... FOR UPDATE before the confirmed seats are recounted, so a
// concurrent booking that would overshoot capacity blocks here and then
// fails the recheck instead of overbooking.
func (p *Postgres) BookSeats(ctx context.Context, rideID string, booking trip.Booking) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback(ctx)

	var capacity int
	err = tx.QueryRow(ctx, `
SELECT available_seats FROM rides WHERE id = $1 FOR UPDATE
`, rideID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.ErrRideNotFound
		}
		return fmt.Errorf("lock ride row: %w", err)
	}

	var booked int
	err = tx.QueryRow(ctx, `
SELECT COALESCE(SUM(seats_booked), 0)
FROM ride_passengers
WHERE ride_id = $1 AND status = 'confirmed'
`, rideID).Scan(&booked)
	if err != nil {
		return fmt.Errorf("count booked seats: %w", err)
	}
	if capacity-booked < booking.SeatsBooked {
		return trip.ErrInsufficientSeats
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO ride_passengers (id, ride_id, user_id, seats_booked, status, booking_time, payment_reference, payment_status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, booking.ID, rideID, booking.UserID, booking.SeatsBooked, booking.Status,
		booking.BookingTime, nullable(booking.PaymentReference), booking.PaymentStatus); err != nil {
		return fmt.Errorf("insert passenger: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"seatsBooked": booking.SeatsBooked,
		"remaining":   capacity - booked - booking.SeatsBooked,
	})
	if _, err := tx.Exec(ctx, `
INSERT INTO ride_events (ride_id, event_type, payload, actor_id, created_at)
VALUES ($1,$2,$3,$4,$5)
`, rideID, "ride_booked", payload, booking.UserID, booking.BookingTime); err != nil {
		return fmt.Errorf("append ride event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// SearchRides lists active rides matching the query, soonest departure first.
func (p *Postgres) SearchRides(ctx context.Context, q trip.RideQuery) ([]trip.Ride, error) {
	clauses := []string{"status = 'active'"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Origin != "" {
		clauses = append(clauses, "origin_address ILIKE "+arg("%"+q.Origin+"%"))
	}
	if q.Destination != "" {
		clauses = append(clauses, "destination_address ILIKE "+arg("%"+q.Destination+"%"))
	}
	if !q.DateFrom.IsZero() {
		clauses = append(clauses, "departure_time >= "+arg(q.DateFrom))
	}
	if !q.DateTo.IsZero() {
		clauses = append(clauses, "departure_time <= "+arg(q.DateTo))
	}
	if len(q.IDs) > 0 {
		clauses = append(clauses, "id = ANY("+arg(q.IDs)+")")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	sql := `
SELECT id, driver_id, origin_address, origin_lat, origin_lng,
	destination_address, destination_lat, destination_lng,
	departure_time, available_seats, price_per_seat, status, notes, created_at
FROM rides
WHERE ` + strings.Join(clauses, " AND ") + `
ORDER BY departure_time ASC
LIMIT ` + arg(limit)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search rides: %w", err)
	}
	defer rows.Close()

	var rides []trip.Ride
	for rows.Next() {
		var (
			r     trip.Ride
			notes *string
		)
		if err := rows.Scan(&r.ID, &r.DriverID, &r.Origin.Address, &r.Origin.Latitude, &r.Origin.Longitude,
			&r.Destination.Address, &r.Destination.Latitude, &r.Destination.Longitude,
			&r.DepartureTime, &r.AvailableSeats, &r.PricePerSeat, &r.Status, &notes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		if notes != nil {
			r.Notes = *notes
		}
		rides = append(rides, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rides {
		passengers, err := p.listPassengers(ctx, rides[i].ID)
		if err != nil {
			return nil, err
		}
		rides[i].Passengers = passengers
	}
	return rides, nil
}

// ListDepartingBetween returns active rides departing inside the window,
// used by the reminder job.
func (p *Postgres) ListDepartingBetween(ctx context.Context, from, to time.Time) ([]trip.Ride, error) {
	return p.SearchRides(ctx, trip.RideQuery{DateFrom: from, DateTo: to, Limit: 200})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
