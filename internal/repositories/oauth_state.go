package repositories

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// OAuthStateRepository stores single-use CSRF state values for the popup OAuth flow.
type OAuthStateRepository struct {
	db *sql.DB
}

// NewOAuthStateRepository creates a new [OAuthStateRepository] with the given database connection
func NewOAuthStateRepository(db *sql.DB) *OAuthStateRepository {
	return &OAuthStateRepository{db: db}
}

// Create assigns a random state value and persists it.
func (r *OAuthStateRepository) Create(state *models.OAuthState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	value, err := randomState()
	if err != nil {
		return err
	}
	state.SetID(value)

	_, err = r.db.Exec(
		"INSERT INTO oauth_states (state, provider, created_at, expires_at) VALUES (?, ?, ?, ?)",
		state.ID(), state.Provider(), state.CreatedAt().UTC(), state.ExpiresAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert oauth state: %w", err)
	}
	return nil
}

// Get retrieves a state by value regardless of whether it was consumed.
func (r *OAuthStateRepository) Get(value string) (*models.OAuthState, error) {
	var (
		provider             string
		createdAt, expiresAt time.Time
		consumedAt           sql.NullTime
	)

	err := r.db.QueryRow(
		"SELECT provider, created_at, expires_at, consumed_at FROM oauth_states WHERE state = ?", value,
	).Scan(&provider, &createdAt, &expiresAt, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: oauth state", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query oauth state: %w", err)
	}

	state := models.NewOAuthState(provider)
	state.SetID(value)
	var consumed *time.Time
	if consumedAt.Valid {
		consumed = &consumedAt.Time
	}
	state.SetTimes(createdAt, expiresAt, consumed)
	return state, nil
}

// Consume marks value as used for provider.
//
// It returns [shared.ErrInvalidState] when the state is unknown, belongs to another provider, was
// already consumed, or has expired.
func (r *OAuthStateRepository) Consume(value, provider string) (*models.OAuthState, error) {
	state, err := r.Get(value)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown state", shared.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case state.Provider() != provider:
		return nil, fmt.Errorf("%w: provider mismatch", shared.ErrInvalidState)
	case state.ConsumedAt() != nil:
		return nil, fmt.Errorf("%w: state already used", shared.ErrInvalidState)
	case !time.Now().Before(state.ExpiresAt()):
		return nil, fmt.Errorf("%w: state expired", shared.ErrInvalidState)
	}

	now := time.Now().UTC()
	result, err := r.db.Exec(
		"UPDATE oauth_states SET consumed_at = ? WHERE state = ? AND consumed_at IS NULL", now, value,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	// A concurrent callback may have consumed it between the read and the update.
	if rows, err := result.RowsAffected(); err != nil || rows == 0 {
		return nil, fmt.Errorf("%w: state already used", shared.ErrInvalidState)
	}

	state.SetTimes(state.CreatedAt(), state.ExpiresAt(), &now)
	return state, nil
}

// PurgeExpired deletes expired and consumed states and returns how many were removed.
func (r *OAuthStateRepository) PurgeExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec(
		"DELETE FROM oauth_states WHERE expires_at <= ? OR consumed_at IS NOT NULL", now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge oauth states: %w", err)
	}
	return result.RowsAffected()
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
