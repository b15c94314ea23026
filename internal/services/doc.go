// Package services implements the clients this server uses to talk to the outside world.
//
// # Backend
//
// [BackendService] wraps the upstream REST API that owns content, reviews, watchlists and
// accounts. Every call takes a [context.Context] and, for user-scoped resources, the caller's
// bearer token.
//
// Upstream bodies come in two shapes: a {success, data, message} envelope or a bare JSON
// document. Both are normalized so callers only ever see the decoded data, and a success:false
// envelope becomes an error carrying the backend message.
//
// # Error Handling
//
// Failures are returned as [*BackendError], which unwraps to a sentinel from the shared package:
//   - [shared.ErrInvalidInput] : upstream 400 or 422, or a success:false envelope
//   - [shared.ErrNotAuthenticated] : upstream 401 or 403
//   - [shared.ErrNotFound] : upstream 404
//   - [shared.ErrAPIRequest] : any other non-2xx status
//   - [shared.ErrServiceUnavailable] : the request never got a response
//
// # Caching
//
// Anonymous catalog reads are cached through a [ResponseCache]: [MemoryCache] in a single process
// or [RedisCache] when several server instances share one.
//
// # OAuth
//
// [OAuthProvider] builds authorize URLs for the popup login flow. The code exchange itself is done
// by the backend through [BackendService.ExchangeOAuth].
//
// # Raw Access
//
// [APIService] issues raw requests for the CLI debugging commands and returns status, headers and
// body untouched.
package services
