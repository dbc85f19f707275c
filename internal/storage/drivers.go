package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"carpool/internal/trip"
)

// CreateDriver inserts the driver row and flips the user's role in one
// transaction, so a failed insert never leaves a passenger promoted.
func (p *Postgres) CreateDriver(ctx context.Context, d trip.Driver) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM drivers WHERE user_id = $1`, d.UserID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check driver: %w", err)
	}
	if existing > 0 {
		return trip.ErrAlreadyDriver
	}

	_, err = tx.Exec(ctx, `
INSERT INTO drivers (id, user_id, license_number, vehicle_make, vehicle_model, vehicle_year,
	vehicle_plate, vehicle_color, vehicle_image_url, is_verified, rides_completed, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, d.ID, d.UserID, d.LicenseNumber, d.Vehicle.Make, d.Vehicle.Model, d.Vehicle.Year,
		d.Vehicle.LicensePlate, nullable(d.Vehicle.Color), nullable(d.Vehicle.ImageURL),
		d.IsVerified, d.RidesCompleted, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "drivers_vehicle_plate_key" {
				return trip.ErrDuplicateVehicle
			}
			return trip.ErrAlreadyDriver
		}
		return fmt.Errorf("insert driver: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE users SET role = 'driver' WHERE id = $1 AND role = 'passenger'`, d.UserID)
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *Postgres) GetDriverByUserID(ctx context.Context, userID string) (trip.Driver, error) {
	var (
		d               trip.Driver
		color, imageURL *string
	)
	err := p.pool.QueryRow(ctx, `
SELECT id, user_id, license_number, vehicle_make, vehicle_model, vehicle_year,
	vehicle_plate, vehicle_color, vehicle_image_url, is_verified, rides_completed, created_at, updated_at
FROM drivers WHERE user_id = $1
`, userID).Scan(&d.ID, &d.UserID, &d.LicenseNumber, &d.Vehicle.Make, &d.Vehicle.Model, &d.Vehicle.Year,
		&d.Vehicle.LicensePlate, &color, &imageURL, &d.IsVerified, &d.RidesCompleted, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.Driver{}, trip.ErrUserNotFound
		}
		return trip.Driver{}, fmt.Errorf("get driver: %w", err)
	}
	d.Vehicle.Color = deref(color)
	d.Vehicle.ImageURL = deref(imageURL)
	return d, nil
}

func (p *Postgres) UpdateDriverVehicle(ctx context.Context, userID string, v trip.Vehicle) (trip.Driver, error) {
	_, err := p.pool.Exec(ctx, `
UPDATE drivers SET vehicle_make=$2, vehicle_model=$3, vehicle_year=$4, vehicle_plate=$5,
	vehicle_color=$6, vehicle_image_url=$7, updated_at=$8
WHERE user_id = $1
`, userID, v.Make, v.Model, v.Year, v.LicensePlate, nullable(v.Color), nullable(v.ImageURL), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return trip.Driver{}, trip.ErrDuplicateVehicle
		}
		return trip.Driver{}, fmt.Errorf("update vehicle: %w", err)
	}
	return p.GetDriverByUserID(ctx, userID)
}

func (p *Postgres) SetDriverVerified(ctx context.Context, userID string, verified bool) error {
	tag, err := p.pool.Exec(ctx, `UPDATE drivers SET is_verified = $2, updated_at = $3 WHERE user_id = $1`,
		userID, verified, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("verify driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) IncrementRidesCompleted(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE drivers SET rides_completed = rides_completed + 1, updated_at = $2 WHERE user_id = $1`,
		userID, time.Now().UTC())
	return err
}

// DriverFilter narrows admin driver listings.
type DriverFilter struct {
	Verified *bool
}

func (p *Postgres) ListDrivers(ctx context.Context, f DriverFilter, limit, offset int) ([]trip.Driver, error) {
	sql := `
SELECT id, user_id, license_number, vehicle_make, vehicle_model, vehicle_year,
	vehicle_plate, vehicle_color, vehicle_image_url, is_verified, rides_completed, created_at, updated_at
FROM drivers`
	args := []any{}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		sql += ` WHERE is_verified = $1`
	}
	args = append(args, limit, offset)
	sql += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()
	var out []trip.Driver
	for rows.Next() {
		var (
			d               trip.Driver
			color, imageURL *string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.LicenseNumber, &d.Vehicle.Make, &d.Vehicle.Model, &d.Vehicle.Year,
			&d.Vehicle.LicensePlate, &color, &imageURL, &d.IsVerified, &d.RidesCompleted, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		d.Vehicle.Color = deref(color)
		d.Vehicle.ImageURL = deref(imageURL)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) CountDrivers(ctx context.Context, f DriverFilter) (int, error) {
	sql := `SELECT COUNT(*) FROM drivers`
	args := []any{}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		sql += ` WHERE is_verified = $1`
	}
	var count int
	err := p.pool.QueryRow(ctx, sql, args...).Scan(&count)
	return count, err
}

func (p *Postgres) CountDriversSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM drivers WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}
