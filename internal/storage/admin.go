package storage

import (
	"context"
	"fmt"
	"time"

	"carpool/internal/trip"
)

// DashboardStats is a snapshot of platform totals for the admin overview.
type DashboardStats struct {
	TotalUsers      int            `json:"totalUsers"`
	NewUsers        int            `json:"newUsers"`
	TotalDrivers    int            `json:"totalDrivers"`
	VerifiedDrivers int            `json:"verifiedDrivers"`
	PendingDrivers  int            `json:"pendingDrivers"`
	TotalRides      int            `json:"totalRides"`
	RidesByStatus   map[string]int `json:"ridesByStatus"`
	TotalBookings   int            `json:"totalBookings"`
	TotalRatings    int            `json:"totalRatings"`
	AverageRating   float64        `json:"averageRating"`
}

// Dashboard aggregates platform counts. since bounds the "new users" window.
func (p *Postgres) Dashboard(ctx context.Context, since time.Time) (DashboardStats, error) {
	var s DashboardStats
	err := p.pool.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM users),
	(SELECT COUNT(*) FROM users WHERE created_at >= $1),
	(SELECT COUNT(*) FROM drivers),
	(SELECT COUNT(*) FROM drivers WHERE is_verified),
	(SELECT COUNT(*) FROM drivers WHERE NOT is_verified),
	(SELECT COUNT(*) FROM rides),
	(SELECT COUNT(*) FROM ride_passengers WHERE status = 'confirmed'),
	(SELECT COUNT(*) FROM ratings),
	(SELECT COALESCE(AVG(stars), 0) FROM ratings)
`, since).Scan(&s.TotalUsers, &s.NewUsers, &s.TotalDrivers, &s.VerifiedDrivers, &s.PendingDrivers,
		&s.TotalRides, &s.TotalBookings, &s.TotalRatings, &s.AverageRating)
	if err != nil {
		return s, fmt.Errorf("dashboard counts: %w", err)
	}

	rows, err := p.pool.Query(ctx, `SELECT status, COUNT(*) FROM rides GROUP BY status`)
	if err != nil {
		return s, fmt.Errorf("rides by status: %w", err)
	}
	defer rows.Close()
	s.RidesByStatus = map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return s, err
		}
		s.RidesByStatus[status] = count
	}
	return s, rows.Err()
}

// MonthlyBucket is one month of signup or ride volume.
type MonthlyBucket struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyCounts groups rows of the named table by creation month over the
// trailing window. Only tables known to this package are accepted.
func (p *Postgres) MonthlyCounts(ctx context.Context, table string, months int) ([]MonthlyBucket, error) {
	switch table {
	case "users", "rides", "ride_passengers":
	default:
		return nil, fmt.Errorf("monthly counts: unsupported table %q", table)
	}
	timeCol := "created_at"
	if table == "ride_passengers" {
		timeCol = "booking_time"
	}
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`
SELECT to_char(date_trunc('month', %s), 'YYYY-MM') AS month, COUNT(*)
FROM %s
WHERE %s >= date_trunc('month', now()) - make_interval(months => $1 - 1)
GROUP BY month
ORDER BY month ASC
`, timeCol, table, timeCol), months)
	if err != nil {
		return nil, fmt.Errorf("monthly counts: %w", err)
	}
	defer rows.Close()
	var out []MonthlyBucket
	for rows.Next() {
		var b MonthlyBucket
		if err := rows.Scan(&b.Month, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendRideEvent(ctx context.Context, ev trip.RideEvent) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO ride_events (ride_id, event_type, payload, actor_id, created_at)
VALUES ($1,$2,$3,$4,$5)
`, ev.RideID, ev.Type, ev.Payload, nullable(ev.ActorID), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ride event: %w", err)
	}
	return nil
}

func (p *Postgres) ListRideEvents(ctx context.Context, rideID string, limit int) ([]trip.RideEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
SELECT ride_id, event_type, payload, actor_id, created_at
FROM ride_events
WHERE ride_id = $1
ORDER BY created_at ASC
LIMIT $2
`, rideID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ride events: %w", err)
	}
	defer rows.Close()
	var out []trip.RideEvent
	for rows.Next() {
		var (
			ev    trip.RideEvent
			actor *string
		)
		if err := rows.Scan(&ev.RideID, &ev.Type, &ev.Payload, &actor, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ride event: %w", err)
		}
		ev.ActorID = deref(actor)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListRecentRides returns the latest posted rides without passenger detail,
// for the admin overview.
func (p *Postgres) ListRecentRides(ctx context.Context, limit int) ([]trip.Ride, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := p.pool.Query(ctx, `
SELECT id, driver_id, origin_address, origin_lat, origin_lng,
	destination_address, destination_lat, destination_lng,
	departure_time, available_seats, price_per_seat, status, notes, created_at
FROM rides
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent rides: %w", err)
	}
	defer rows.Close()
	var out []trip.Ride
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
		r.Notes = deref(notes)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CountRides(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rides`).Scan(&count)
	return count, err
}

func (p *Postgres) CountRidesByDriver(ctx context.Context, driverUserID string) (total, completed int, err error) {
	err = p.pool.QueryRow(ctx, `
SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
FROM rides WHERE driver_id = $1
`, driverUserID).Scan(&total, &completed)
	return total, completed, err
}

// SeatsSoldByDriver totals confirmed seats across every ride the driver posted.
func (p *Postgres) SeatsSoldByDriver(ctx context.Context, driverUserID string) (int, error) {
	var seats int
	err := p.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(rp.seats_booked), 0)
FROM ride_passengers rp
JOIN rides r ON r.id = rp.ride_id
WHERE r.driver_id = $1 AND rp.status = 'confirmed'
`, driverUserID).Scan(&seats)
	return seats, err
}
