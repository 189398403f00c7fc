// Package api defines the shared value types and the error taxonomy used by
// every provider, the comparator and the HTTP transport.
//
// All types are request scoped and carry no behaviour beyond validation and
// JSON encoding. Errors crossing package boundaries are *APIError values so
// that the transport can map them to a status code and a structured body
// without inspecting provider internals.
//
// Core types:
//   - [ChatMessage]: one role/content pair in an ordered conversation
//   - [ChatParameters]: optional generation parameters (max tokens, temperature)
//   - [ChatResult]: text, finish reason, token usage and request ID of a completion
//   - [Embedding]: an ordered float32 vector as returned by the provider
//   - [APIError]: structured error with type, code, param, and message
package api
