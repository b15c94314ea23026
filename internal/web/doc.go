// Package web serves the reeltrack site: the local JSON API, the server-rendered pages and the
// crawler surface.
//
// # API
//
// Routes under /api validate their input, forward the caller's token to the backend and answer
// with a single envelope shape:
//
//	{"success": true, "data": ...}
//	{"success": false, "message": "..."}
//
// Errors map to 400 for invalid input, 401 when authentication is missing or rejected, 404 when the
// resource does not exist, and 500 for everything else. A 500 never carries internal error text.
//
// # Authentication
//
// Login, OAuth and email verification store the backend token in the "token" cookie (HttpOnly,
// SameSite=Lax, seven days). Tokens issued here are recorded as sessions so logout can revoke them
// before they expire.
//
// # Pages
//
// Pages are rendered with html/template. Each embeds the data it was rendered from as a JSON
// snapshot in a script element with id "__hydration", keyed by the same query keys the terminal
// client uses.
//
// # Crawlers
//
// /robots.txt, /sitemap.xml and /sitemaps/{static,movies,series}.xml are served by
// [sitemap.Generator] and degrade to a static-page feed when the backend fails.
package web
