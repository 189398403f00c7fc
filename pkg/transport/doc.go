// Package transport holds the HTTP plumbing shared by the gateway's
// surfaces: the service contracts the handlers call, the middleware chain
// and the mapping from APIError types to HTTP status codes.
//
// # Middleware
//
// Middleware has the standard func(http.Handler) http.Handler shape.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID) and structured request logging via log/slog. Chain
// composes them so that the first middleware is the outermost wrapper.
//
// # Errors
//
// Every failure leaves the process as {"error":{"type","message",...}}
// with a status derived from the error type by HTTPStatusFromError.
package transport
