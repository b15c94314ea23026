// Package repositories implements SQLite persistence for the records this server owns.
//
// The upstream backend is the source of truth for accounts, content, reviews and watchlists.
// Locally the server only remembers what it handed out:
//   - [SessionRepository] : auth tokens issued through login or OAuth, stored as sha256 hashes so
//     logout can revoke them before they expire
//   - [OAuthStateRepository] : single-use CSRF state values for the popup OAuth flow
//
// The [NextSequence] function atomically increments named counters in the sequences table.
package repositories
