// Package server provides HTTP routing, middleware, and the JSON API for the song request queue.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("POST /api/requests/{id}/move"),
// so handlers read path parameters with [http.Request.PathValue].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # JSON API
//
// [APIHandler] exposes the lifecycle manager:
//
//	GET  /api/requests[?status=pending]  → snapshot or status view, with counts and last sync time
//	POST /api/requests                   → submit a request (rate limited per client)
//	POST /api/requests/{id}/status       → {"status": "playing"}
//	POST /api/requests/{id}/move         → {"direction": "up"}
//	POST /api/refresh                    → re-fetch from the store
//
// Errors are JSON bodies with the status code chosen by [StatusCode].
//
// # Operations
//
// [HealthHandler] serves /live and /ready; readiness pings the store. /metrics is served by promhttp.
package server
