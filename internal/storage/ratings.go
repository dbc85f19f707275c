package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"carpool/internal/trip"
)

// RatingExists reports whether this rater already rated someone on the ride.
func (p *Postgres) RatingExists(ctx context.Context, rideID, ratedBy string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM ratings WHERE ride_id = $1 AND rated_by = $2)
`, rideID, ratedBy).Scan(&exists)
	return exists, err
}

// SubmitRating inserts the rating and recomputes the rated user's aggregate
// from every rating they have ever received, in one transaction. The unique
// (ride_id, rated_by) index backs the one-rating-per-rider-per-ride rule; a
// violation maps to trip.ErrRatingExists.
func (p *Postgres) SubmitRating(ctx context.Context, r trip.Rating) (trip.RatingAggregate, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return trip.RatingAggregate{}, fmt.Errorf("begin rating: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO ratings (id, ride_id, rated_by, rated_user, rater_role, stars, review,
	cat_punctuality, cat_communication, cat_cleanliness, cat_safety, cat_overall, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, r.ID, r.RideID, r.RatedBy, r.RatedUserID, r.RaterRole, r.Stars, nullable(r.Review),
		nullableInt(r.Categories.Punctuality), nullableInt(r.Categories.Communication),
		nullableInt(r.Categories.Cleanliness), nullableInt(r.Categories.Safety),
		nullableInt(r.Categories.Overall), r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return trip.RatingAggregate{}, trip.ErrRatingExists
		}
		return trip.RatingAggregate{}, fmt.Errorf("insert rating: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT stars FROM ratings WHERE rated_user = $1`, r.RatedUserID)
	if err != nil {
		return trip.RatingAggregate{}, fmt.Errorf("read ratings: %w", err)
	}
	var history []trip.Rating
	for rows.Next() {
		var stars int
		if err := rows.Scan(&stars); err != nil {
			rows.Close()
			return trip.RatingAggregate{}, fmt.Errorf("scan stars: %w", err)
		}
		history = append(history, trip.Rating{Stars: stars})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return trip.RatingAggregate{}, err
	}

	agg := trip.AggregateRatings(history)
	if _, err := tx.Exec(ctx, `
UPDATE users SET rating_average = $2, rating_count = $3 WHERE id = $1
`, r.RatedUserID, agg.Average, agg.Count); err != nil {
		return trip.RatingAggregate{}, fmt.Errorf("update aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return trip.RatingAggregate{}, fmt.Errorf("commit rating: %w", err)
	}
	return agg, nil
}

func (p *Postgres) GetRating(ctx context.Context, id string) (trip.Rating, error) {
	r, err := scanRating(p.pool.QueryRow(ctx, `
SELECT id, ride_id, rated_by, rated_user, rater_role, stars, review,
	cat_punctuality, cat_communication, cat_cleanliness, cat_safety, cat_overall, created_at
FROM ratings WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.Rating{}, trip.ErrRatingNotFound
		}
		return trip.Rating{}, fmt.Errorf("get rating: %w", err)
	}
	return r, nil
}

// ListRatings pages through a user's received ratings, newest first. An
// empty userID lists everything.
func (p *Postgres) ListRatings(ctx context.Context, userID string, limit, offset int) ([]trip.Rating, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, ride_id, rated_by, rated_user, rater_role, stars, review,
	cat_punctuality, cat_communication, cat_cleanliness, cat_safety, cat_overall, created_at
FROM ratings
WHERE ($1 = '' OR rated_user = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()
	var out []trip.Rating
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CountRatings(ctx context.Context, userID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM ratings WHERE ($1 = '' OR rated_user = $1)
`, userID).Scan(&count)
	return count, err
}

func scanRating(row pgx.Row) (trip.Rating, error) {
	var (
		r                              trip.Rating
		review                         *string
		punc, comm, clean, safe, overa *int
	)
	err := row.Scan(&r.ID, &r.RideID, &r.RatedBy, &r.RatedUserID, &r.RaterRole, &r.Stars, &review,
		&punc, &comm, &clean, &safe, &overa, &r.CreatedAt)
	if err != nil {
		return trip.Rating{}, err
	}
	if review != nil {
		r.Review = *review
	}
	r.Categories = trip.RatingCategories{
		Punctuality:   deref(punc),
		Communication: deref(comm),
		Cleanliness:   deref(clean),
		Safety:        deref(safe),
		Overall:       deref(overa),
	}
	return r, nil
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
