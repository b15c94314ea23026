// Package models defines domain entities and persistence interfaces for reeltrack.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): structs decoded from, or sent to, the upstream backend
//   - [Content] : a movie, series, season or episode from the catalog
//   - [Review] : a user review with like/dislike counts and the caller's reaction
//   - [WatchlistItem] : a saved content entry tagged TO_WATCH or WATCHED
//   - [User] and [AuthResult] : account data returned by the auth endpoints
//   - [Envelope] : the single response shape of the local API routes
//
// 2. Persistent Entities: SQLite-backed records owned by this server
//   - [AuthSession] : one row per auth cookie issued, used for logout revocation
//   - [OAuthState] : single-use CSRF state for the popup OAuth flow
//
// Persistent entities implement [Persisted] and are served by a [Store].
package models
