// Package openaisdk implements provider.Provider on top of the official
// OpenAI Go SDK, pointed at any OpenAI-compatible endpoint.
//
// The SDK is treated as an opaque capability behind the Backend type so
// tests can substitute it. The target model is resolved per call: the
// deployment name when set, otherwise the model name.
package openaisdk
