package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/errors"
)

// ProfileRepository implements profile.Repository on database/sql. It works
// against Postgres in production and SQLite in development and tests.
type ProfileRepository struct {
	db     *sql.DB
	driver string
}

// NewProfileRepository creates a new profile repository. Driver must match
// the driver the *sql.DB was opened with ("postgres" or "sqlite").
func NewProfileRepository(db *sql.DB, driver string) *ProfileRepository {
	return &ProfileRepository{db: db, driver: driver}
}

// rebind converts ? placeholders to $n for Postgres. SQLite takes ? as is.
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func (r *ProfileRepository) q(query string) string {
	return rebind(r.driver, query)
}

const profileColumns = "id, email, password_hash, plan, notes_today, qna_today, last_reset, created_at, updated_at"

func scanProfile(row interface{ Scan(...interface{}) error }) (*profile.Profile, error) {
	var p profile.Profile
	var createdAt, updatedAt int64
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.Plan,
		&p.NotesToday, &p.QnaToday, &p.LastReset,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

// Create inserts a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Plan == "" {
		p.Plan = profile.PlanFree
	}
	if p.LastReset == "" {
		p.LastReset = profile.Today()
	}

	query := r.q(`
		INSERT INTO profiles (id, email, password_hash, plan, notes_today, qna_today, last_reset, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Email, p.PasswordHash, p.Plan,
		p.NotesToday, p.QnaToday, p.LastReset,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create profile", err)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	query := r.q("SELECT " + profileColumns + " FROM profiles WHERE id = ?")
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Profile")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get profile", err)
	}
	return p, nil
}

// GetByEmail retrieves a profile by email
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	query := r.q("SELECT " + profileColumns + " FROM profiles WHERE email = ?")
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Profile")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get profile", err)
	}
	return p, nil
}

// Upsert inserts the profile if no row with its id exists, then returns the
// stored row. A second upsert with the same id leaves the row untouched.
func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	now := time.Now().UTC()
	if p.Plan == "" {
		p.Plan = profile.PlanFree
	}
	if p.LastReset == "" {
		p.LastReset = profile.Today()
	}

	query := r.q(`
		INSERT INTO profiles (id, email, password_hash, plan, notes_today, qna_today, last_reset, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Email, p.PasswordHash, p.Plan,
		p.NotesToday, p.QnaToday, p.LastReset,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, errors.DatabaseError("Failed to upsert profile", err)
	}

	return r.GetByID(ctx, p.ID)
}

// SetPlanByID sets the plan on the profile with the given id.
func (r *ProfileRepository) SetPlanByID(ctx context.Context, id, plan string) (bool, error) {
	query := r.q("UPDATE profiles SET plan = ?, updated_at = ? WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, plan, time.Now().UTC().Unix(), id)
	if err != nil {
		return false, errors.DatabaseError("Failed to update plan", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}

// SetPlanByEmail sets the plan on the profile with the given email.
func (r *ProfileRepository) SetPlanByEmail(ctx context.Context, email, plan string) (bool, error) {
	query := r.q("UPDATE profiles SET plan = ?, updated_at = ? WHERE email = ?")
	res, err := r.db.ExecContext(ctx, query, plan, time.Now().UTC().Unix(), email)
	if err != nil {
		return false, errors.DatabaseError("Failed to update plan", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}

// ConsumeCounter runs the lazy reset and conditional increment inside one
// transaction holding a row lock, so two concurrent requests cannot both
// read a stale counter and push it past quota. On SQLite the single-writer
// connection pool serializes the transactions instead of FOR UPDATE.
func (r *ProfileRepository) ConsumeCounter(ctx context.Context, id string, c profile.Counter, quota int, today string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.DatabaseError("Failed to begin transaction", err)
	}
	defer tx.Rollback()

	sel := "SELECT " + profileColumns + " FROM profiles WHERE id = ?"
	if r.driver == "postgres" {
		sel += " FOR UPDATE"
	}

	p, err := scanProfile(tx.QueryRowContext(ctx, r.q(sel), id))
	if err == sql.ErrNoRows {
		return false, errors.NotFound("Profile")
	}
	if err != nil {
		return false, errors.DatabaseError("Failed to lock profile", err)
	}

	changed := p.ApplyReset(today)

	allowed := true
	if p.Plan != profile.PlanPremium {
		if p.Value(c) >= quota {
			allowed = false
		} else {
			switch c {
			case profile.CounterNotes:
				p.NotesToday++
			case profile.CounterQnA:
				p.QnaToday++
			}
			changed = true
		}
	}

	if changed {
		update := r.q("UPDATE profiles SET notes_today = ?, qna_today = ?, last_reset = ?, updated_at = ? WHERE id = ?")
		if _, err := tx.ExecContext(ctx, update,
			p.NotesToday, p.QnaToday, p.LastReset, time.Now().UTC().Unix(), id,
		); err != nil {
			return false, errors.DatabaseError("Failed to update usage", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.DatabaseError("Failed to commit usage update", err)
	}
	return allowed, nil
}

// CountByPlan returns the number of profiles per plan. Used by the daily
// usage report, not part of the domain repository interface.
func (r *ProfileRepository) CountByPlan(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT plan, COUNT(*) FROM profiles GROUP BY plan")
	if err != nil {
		return nil, errors.DatabaseError("Failed to count profiles", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var plan string
		var count int
		if err := rows.Scan(&plan, &count); err != nil {
			return nil, errors.DatabaseError("Failed to scan plan count", err)
		}
		counts[plan] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate plan counts", err)
	}
	return counts, nil
}

// ResetStale persists the daily reset when last_reset is older than today.
// The WHERE clause makes same-day calls no-ops even under races.
func (r *ProfileRepository) ResetStale(ctx context.Context, id, today string) error {
	query := r.q(`
		UPDATE profiles
		SET notes_today = 0, qna_today = 0, last_reset = ?, updated_at = ?
		WHERE id = ? AND last_reset <> ?
	`)
	if _, err := r.db.ExecContext(ctx, query, today, time.Now().UTC().Unix(), id, today); err != nil {
		return errors.DatabaseError("Failed to reset usage", err)
	}
	return nil
}
