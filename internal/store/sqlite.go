package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/deadman/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct {
	db        *sql.DB
	defaultTZ string
	now       func() time.Time
}

var _ Repo = (*SQLiteRepo)(nil)

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies PRAGMAs, runs migrations, and returns a repository.
// New profiles get defaultTZ as their timezone.
func OpenSQLite(ctx context.Context, path, defaultTZ string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection also serializes our transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &SQLiteRepo{db: db, defaultTZ: defaultTZ, now: time.Now}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// inTx runs fn in a transaction, rolling back on error.
func (r *SQLiteRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- Profiles ---

// GetProfile returns the profile or domain.ErrProfileNotFound.
func (r *SQLiteRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return getProfile(ctx, r.db, userID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProfile(ctx context.Context, q querier, userID string) (*domain.Profile, error) {
	row := q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	return p, err
}

// GetOrCreateProfile upserts a profile with defaults and returns the stored row.
// Insert and read share one transaction, so a fresh profile is visible immediately.
func (r *SQLiteRepo) GetOrCreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("empty user id")
	}
	var p *domain.Profile
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (
				user_id, display_name, checkin_interval_hours, checkin_time,
				timezone, monitoring_enabled, is_premium, created_at
			) VALUES (?, '', ?, ?, ?, 1, 0, ?)
			ON CONFLICT(user_id) DO NOTHING`,
			userID, domain.DefaultIntervalHours, domain.DefaultCheckinTime,
			r.defaultTZ, toMillis(r.now()),
		); err != nil {
			return err
		}
		var err error
		p, err = getProfile(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile applies the non-nil fields of upd and returns the updated row.
func (r *SQLiteRepo) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	var (
		sets []string
		args []any
	)
	if upd.DisplayName != nil {
		sets, args = append(sets, "display_name = ?"), append(args, *upd.DisplayName)
	}
	if upd.CheckinIntervalHours != nil {
		sets, args = append(sets, "checkin_interval_hours = ?"), append(args, *upd.CheckinIntervalHours)
	}
	if upd.CheckinTime != nil {
		sets, args = append(sets, "checkin_time = ?"), append(args, *upd.CheckinTime)
	}
	if upd.Timezone != nil {
		sets, args = append(sets, "timezone = ?"), append(args, *upd.Timezone)
	}
	if upd.MonitoringEnabled != nil {
		sets, args = append(sets, "monitoring_enabled = ?"), append(args, boolToInt(*upd.MonitoringEnabled))
	}
	if upd.IsPremium != nil {
		sets, args = append(sets, "is_premium = ?"), append(args, boolToInt(*upd.IsPremium))
	}

	var p *domain.Profile
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if len(sets) > 0 {
			res, err := tx.ExecContext(ctx,
				`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE user_id = ?`,
				append(args, userID)...,
			)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domain.ErrProfileNotFound
			}
		}
		var err error
		p, err = getProfile(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListMonitoredProfiles returns every profile with monitoring enabled.
func (r *SQLiteRepo) ListMonitoredProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE monitoring_enabled = 1
		ORDER BY created_at ASC, user_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Check-ins ---

// RecordCheckIn appends a check-in and updates profiles.last_checkin_at atomically.
// A non-nil allow is evaluated against the stored last check-in inside the same
// transaction; a refusal, or losing a race with a concurrent check-in, yields
// domain.ErrCheckinTooSoon.
func (r *SQLiteRepo) RecordCheckIn(ctx context.Context, userID string, allow CheckinGate) (domain.CheckIn, error) {
	ci := domain.CheckIn{
		ID:        uuid.NewString(),
		UserID:    userID,
		CheckinAt: r.now().UTC(),
	}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var last sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT last_checkin_at FROM profiles WHERE user_id = ?`, userID,
		).Scan(&last)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProfileNotFound
		}
		if err != nil {
			return err
		}
		if allow != nil && !allow(fromNullMillis(last)) {
			return domain.ErrCheckinTooSoon
		}

		// Compare-and-set on the value the gate saw.
		res, err := tx.ExecContext(ctx,
			`UPDATE profiles SET last_checkin_at = ? WHERE user_id = ? AND last_checkin_at IS ?`,
			toMillis(ci.CheckinAt), userID, last,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrCheckinTooSoon
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO checkins (id, user_id, checkin_at) VALUES (?, ?, ?)`,
			ci.ID, ci.UserID, toMillis(ci.CheckinAt),
		)
		return err
	})
	if err != nil {
		return domain.CheckIn{}, err
	}
	return ci, nil
}

// RecentCheckIns returns up to limit check-ins, newest first.
func (r *SQLiteRepo) RecentCheckIns(ctx context.Context, userID string, limit int) ([]domain.CheckIn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, checkin_at
		FROM checkins
		WHERE user_id = ?
		ORDER BY checkin_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.CheckIn
	for rows.Next() {
		var (
			ci domain.CheckIn
			at int64
		)
		if err := rows.Scan(&ci.ID, &ci.UserID, &at); err != nil {
			return nil, err
		}
		ci.CheckinAt = fromMillis(at)
		res = append(res, ci)
	}
	return res, rows.Err()
}

// --- Emergency contacts ---

// ListContacts returns the user's contacts by ascending priority.
func (r *SQLiteRepo) ListContacts(ctx context.Context, userID string) ([]domain.EmergencyContact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM emergency_contacts
		WHERE user_id = ?
		ORDER BY priority ASC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.EmergencyContact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// CreateContact inserts a contact unless the profile's tier cap is reached,
// in which case a *domain.ValidationError wrapping domain.ErrContactLimit is returned.
func (r *SQLiteRepo) CreateContact(ctx context.Context, userID string, nc domain.NewContact) (domain.EmergencyContact, error) {
	nc, err := domain.ValidateContact(nc)
	if err != nil {
		return domain.EmergencyContact{}, err
	}

	c := domain.EmergencyContact{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      nc.Name,
		Email:     nc.Email,
		Phone:     nc.Phone,
		Priority:  nc.Priority,
		CreatedAt: r.now().UTC(),
	}
	err = r.inTx(ctx, func(tx *sql.Tx) error {
		p, err := getProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM emergency_contacts WHERE user_id = ?`, userID,
		).Scan(&count); err != nil {
			return err
		}
		if count >= p.ContactLimit() {
			return domain.ContactLimitError(p.IsPremium)
		}
		if c.Priority == 0 {
			c.Priority = count + 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO emergency_contacts (id, user_id, name, email, phone, priority, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.UserID, c.Name, c.Email, toNullString(c.Phone), c.Priority, toMillis(c.CreatedAt),
		)
		return err
	})
	if err != nil {
		return domain.EmergencyContact{}, err
	}
	return c, nil
}

// DeleteContact removes one of the user's contacts.
func (r *SQLiteRepo) DeleteContact(ctx context.Context, userID, contactID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM emergency_contacts WHERE id = ? AND user_id = ?`, contactID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

// --- Alerts ---

// CreateAlert inserts a pending alert row.
func (r *SQLiteRepo) CreateAlert(ctx context.Context, na domain.NewAlert) (domain.Alert, error) {
	if !na.Channel.Valid() {
		return domain.Alert{}, fmt.Errorf("unknown alert channel %q", na.Channel)
	}
	now := r.now().UTC()
	a := domain.Alert{
		ID:          uuid.NewString(),
		UserID:      na.UserID,
		ContactID:   na.ContactID,
		Channel:     na.Channel,
		Status:      domain.AlertPending,
		TriggeredAt: now,
		UpdatedAt:   now,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, user_id, contact_id, channel, status, triggered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ContactID, string(a.Channel), string(a.Status),
		toMillis(a.TriggeredAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		return domain.Alert{}, err
	}
	return a, nil
}

// UpdateAlertStatus moves a pending alert to a terminal status.
// Terminal alerts are never reopened: domain.ErrInvalidTransition is returned instead.
func (r *SQLiteRepo) UpdateAlertStatus(ctx context.Context, alertID string, status domain.AlertStatus) error {
	if !domain.AlertPending.CanTransition(status) {
		return fmt.Errorf("%w: to %s", domain.ErrInvalidTransition, status)
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE alerts SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(status), toMillis(r.now()), alertID, string(domain.AlertPending),
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}
		var current string
		err = tx.QueryRowContext(ctx, `SELECT status FROM alerts WHERE id = ?`, alertID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAlertNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, current, status)
	})
}

// ListAlerts returns up to limit alerts for the user, newest first.
func (r *SQLiteRepo) ListAlerts(ctx context.Context, userID string, limit int) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE user_id = ?
		ORDER BY triggered_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
