// Package compare runs the same request against two providers
// concurrently and reports both outcomes side by side.
//
// Both calls are started before either is awaited and neither call
// cancels the other. A failure (or panic) in one provider is recorded in
// that provider's Outcome; the comparison as a whole only fails when
// every provider failed.
package compare
