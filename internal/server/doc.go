// Package server provides HTTP routing, middleware, auth cookies and the popup OAuth flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [ChiRouter] implements it
// on github.com/go-chi/chi/v5, so route patterns may carry path parameters such as {id}.
//
// Custom handlers implement the [Handler] interface and return their [Route] table, keeping route
// definitions next to the code that serves them.
//
// # Middleware
//
// The standard stack, outermost first: [Recover], [RequestLogger], [Metrics], [Trace],
// [RateLimit] (only for /api) and [Authenticate]. [RequireAuth] guards individual routes.
//
// # Auth Cookie
//
// The session token travels in an HttpOnly, SameSite=Lax cookie named "token" that lives for
// seven days. [SetAuthCookie] and [ClearAuthCookie] write it and [TokenFromRequest] reads it.
//
// # OAuth Popup
//
// [OAuthHandler] starts a provider login in a popup window and, on callback, hands the code to the
// backend, sets the cookie and posts the outcome to window.opener before closing the popup.
package server
