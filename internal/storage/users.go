package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"carpool/internal/trip"
)

// UserFilter narrows admin user listings. Nil pointers mean "no filter".
type UserFilter struct {
	Search   string
	Role     trip.Role
	IsActive *bool
}

func (p *Postgres) CreateUser(ctx context.Context, u trip.User) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, is_active,
	rating_average, rating_count, notify_email, notify_push, notify_sms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`, u.ID, u.Email, u.Password, u.FirstName, u.LastName, nullable(u.Phone), u.Role, u.IsActive,
		u.Rating.Average, u.Rating.Count, u.Preferences.Email, u.Preferences.Push, u.Preferences.SMS, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return trip.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (trip.User, error) {
	return p.getUserBy(ctx, "id", id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (trip.User, error) {
	return p.getUserBy(ctx, "email", strings.ToLower(email))
}

func (p *Postgres) getUserBy(ctx context.Context, column, value string) (trip.User, error) {
	var (
		u     trip.User
		phone *string
	)
	err := p.pool.QueryRow(ctx, `
SELECT id, email, password_hash, first_name, last_name, phone, role, is_active,
	rating_average, rating_count, notify_email, notify_push, notify_sms, created_at
FROM users WHERE `+column+` = $1
`, value).Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &phone, &u.Role, &u.IsActive,
		&u.Rating.Average, &u.Rating.Count, &u.Preferences.Email, &u.Preferences.Push, &u.Preferences.SMS, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.User{}, trip.ErrUserNotFound
		}
		return trip.User{}, fmt.Errorf("get user: %w", err)
	}
	if phone != nil {
		u.Phone = *phone
	}
	return u, nil
}

func (p *Postgres) SetUserRole(ctx context.Context, id string, role trip.Role) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) SetUserActive(ctx context.Context, id string, active bool) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update is_active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrUserNotFound
	}
	return nil
}

// UpdatePreferences overwrites only the channels the caller provided.
func (p *Postgres) UpdatePreferences(ctx context.Context, id string, email, push, sms *bool) (trip.NotificationPreferences, error) {
	var prefs trip.NotificationPreferences
	err := p.pool.QueryRow(ctx, `
UPDATE users SET
	notify_email = COALESCE($2, notify_email),
	notify_push = COALESCE($3, notify_push),
	notify_sms = COALESCE($4, notify_sms)
WHERE id = $1
RETURNING notify_email, notify_push, notify_sms
`, id, email, push, sms).Scan(&prefs.Email, &prefs.Push, &prefs.SMS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return prefs, trip.ErrUserNotFound
		}
		return prefs, fmt.Errorf("update preferences: %w", err)
	}
	return prefs, nil
}

func (p *Postgres) ListUsers(ctx context.Context, f UserFilter, limit, offset int) ([]trip.User, error) {
	clauses, args := userClauses(f)
	args = append(args, limit, offset)
	sql := `
SELECT id, email, password_hash, first_name, last_name, phone, role, is_active,
	rating_average, rating_count, notify_email, notify_push, notify_sms, created_at
FROM users
WHERE ` + clauses + `
ORDER BY created_at DESC
LIMIT $` + fmt.Sprint(len(args)-1) + ` OFFSET $` + fmt.Sprint(len(args))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []trip.User
	for rows.Next() {
		var (
			u     trip.User
			phone *string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &phone, &u.Role, &u.IsActive,
			&u.Rating.Average, &u.Rating.Count, &u.Preferences.Email, &u.Preferences.Push, &u.Preferences.SMS, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if phone != nil {
			u.Phone = *phone
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (p *Postgres) CountUsers(ctx context.Context, f UserFilter) (int, error) {
	clauses, args := userClauses(f)
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+clauses, args...).Scan(&count)
	return count, err
}

func (p *Postgres) CountUsersSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}

// ActiveUserIDs feeds announcement fan-out.
func (p *Postgres) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM users WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func userClauses(f UserFilter) (string, []any) {
	clauses := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		pat := arg("%" + f.Search + "%")
		clauses = append(clauses, "(first_name ILIKE "+pat+" OR last_name ILIKE "+pat+" OR email ILIKE "+pat+")")
	}
	if f.Role != "" {
		clauses = append(clauses, "role = "+arg(string(f.Role)))
	}
	if f.IsActive != nil {
		clauses = append(clauses, "is_active = "+arg(*f.IsActive))
	}
	return strings.Join(clauses, " AND "), args
}
