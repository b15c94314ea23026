package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// SessionRepository implements [models.Store] for [models.AuthSession].
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, token_hash, user_id, email, provider, created_at, expires_at, revoked_at`

// Create inserts a new session with a generated ID
func (r *SessionRepository) Create(session *models.AuthSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := NextSequence(r.db, "sessions"); err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	// Backends may hand out the same token again, so a repeat login reactivates the session.
	query := `
		INSERT INTO sessions (id, token_hash, user_id, email, provider, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_hash) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			provider = excluded.provider,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			revoked_at = NULL
		RETURNING id
	`
	var id string
	err := r.db.QueryRow(query,
		shared.GenerateID(), session.TokenHash(), session.UserID(), session.Email(), session.Provider(),
		session.CreatedAt().UTC(), session.ExpiresAt().UTC(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	session.SetID(id)
	return nil
}

// Record stores a session for a raw token returned by the backend.
func (r *SessionRepository) Record(token string, user *models.User, provider string) (*models.AuthSession, error) {
	var userID, email string
	if user != nil {
		userID, email = user.ID, user.Email
	}

	session := models.NewAuthSession(shared.HashToken(token), userID, email, provider)
	if err := r.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(id string) (*models.AuthSession, error) {
	row := r.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	return session, err
}

// GetByToken retrieves the session issued for a raw token.
func (r *SessionRepository) GetByToken(token string) (*models.AuthSession, error) {
	row := r.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE token_hash = ?", shared.HashToken(token))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session for token", shared.ErrNotFound)
	}
	return session, err
}

// Revoke marks the session for token as revoked. Unknown tokens are not an error.
func (r *SessionRepository) Revoke(token string) error {
	_, err := r.db.Exec(
		"UPDATE sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL",
		time.Now().UTC(), shared.HashToken(token),
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// CheckToken returns [shared.ErrTokenRevoked] or [shared.ErrTokenExpired] when token was issued
// here and is no longer usable. Tokens this server never issued pass.
func (r *SessionRepository) CheckToken(token string, now time.Time) error {
	session, err := r.GetByToken(token)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch {
	case session.RevokedAt() != nil:
		return fmt.Errorf("%w: session %s", shared.ErrTokenRevoked, session.ID())
	case !now.Before(session.ExpiresAt()):
		return fmt.Errorf("%w: session %s", shared.ErrTokenExpired, session.ID())
	}
	return nil
}

// IsRevoked reports whether token was issued here and has since been revoked or has expired.
func (r *SessionRepository) IsRevoked(token string) (bool, error) {
	err := r.CheckToken(token, time.Now())
	if errors.Is(err, shared.ErrTokenRevoked) || errors.Is(err, shared.ErrTokenExpired) {
		return true, nil
	}
	return false, err
}

// Delete removes a session by ID
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	return nil
}

// List retrieves sessions matching criteria. Supported keys are "user_id" and "active" (bool).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.AuthSession, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE 1 = 1"
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if active, ok := criteria["active"].(bool); ok && active {
		query += " AND revoked_at IS NULL AND expires_at > ?"
		args = append(args, time.Now().UTC())
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.AuthSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

// PurgeExpired deletes sessions that expired before now and returns how many were removed.
func (r *SessionRepository) PurgeExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.AuthSession, error) {
	var (
		id, tokenHash, userID, email, provider string
		createdAt, expiresAt                   time.Time
		revokedAt                              sql.NullTime
	)

	if err := row.Scan(&id, &tokenHash, &userID, &email, &provider, &createdAt, &expiresAt, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	session := models.NewAuthSession(tokenHash, userID, email, provider)
	session.SetID(id)
	var revoked *time.Time
	if revokedAt.Valid {
		revoked = &revokedAt.Time
	}
	session.SetTimes(createdAt, expiresAt, revoked)
	return session, nil
}
