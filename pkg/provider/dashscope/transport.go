package dashscope

import "net/http"

// headerTransport adds a fixed header set to every outgoing request. The
// header set is built once when the provider is constructed and never
// changes afterwards.
type headerTransport struct {
	base   http.RoundTripper
	header http.Header
}

func newHeaderTransport(base http.RoundTripper, apiKey string) *headerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	h := make(http.Header)
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	h.Set("Accept", "application/json")
	return &headerTransport{base: base, header: h}
}

// RoundTrip clones the request, sets the fixed headers and delegates to the
// base transport.
func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	for k, v := range t.header {
		r2.Header[k] = v
	}
	return t.base.RoundTrip(r2)
}

// CloseIdleConnections forwards to the base transport when supported.
func (t *headerTransport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if c, ok := t.base.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}
