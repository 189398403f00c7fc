// Package dashscope implements provider.Provider as a direct HTTP client for
// the DashScope REST API.
//
// The package owns its wire codec: request and response bodies use lower
// snake_case field names, chat responses decode into a typed envelope, and
// embedding vectors are extracted with a JSON tree walk because the
// embedding payload has no stable top-level shape. Non-2xx responses are
// mapped to transport errors before any body decoding is attempted.
package dashscope
