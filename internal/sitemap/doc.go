// Package sitemap renders robots.txt, the sitemap index and the per-category sitemap feeds.
//
// Feeds list the most popular content of a type, fetched page by page from the backend and bounded
// by a per-type limit. A category whose fetch fails, or that has no content, is served as the
// static-page feed instead, so crawlers always receive a well-formed document.
package sitemap
