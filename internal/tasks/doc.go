// Package tasks runs background work for the server with non-blocking progress reporting.
//
// # Sitemap Warming
//
// [SitemapWarmer] regenerates every sitemap feed and stores it in the sitemap cache, so crawlers
// are served a prebuilt document instead of waiting on a paginated backend fetch:
//
//  1. [SitemapWarmer.Warm] : a single cycle over every category
//  2. [SitemapWarmer.Run] : Warm on start, then again on every interval until the context ends
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate] values. Sends use select with default,
// so a slow or absent reader never stalls a build.
package tasks
