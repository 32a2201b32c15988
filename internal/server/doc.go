// Package server provides HTTP routing, middleware and the server lifecycle for the web front end.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering, so path wildcards
// such as "/stream/{id}" are available through [http.Request.PathValue].
//
// # Middleware
//
//   - [RequestIDMiddleware] tags each request with a UUID (X-Request-ID)
//   - [AccessLog] writes one structured log line per request, without the query string
//   - [Recover] converts handler panics into 500 responses
//
// # Lifecycle
//
// [Serve] runs until its context is cancelled and then shuts down gracefully within [ShutdownTimeout].
package server
