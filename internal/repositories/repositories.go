package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/reeltrack/internal/models"
)

var (
	_ models.Store[*models.AuthSession] = (*SessionRepository)(nil)
	_ models.Store[*models.OAuthState]  = (*OAuthStateRepository)(nil)
)

// NextSequence atomically increments and returns the next sequence number for name.
//
// Sessions use it to number rows for listing and debugging; it is never exposed to clients.
func NextSequence(db *sql.DB, name string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
	`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRow("SELECT value FROM sequences WHERE name = ?", name).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}
