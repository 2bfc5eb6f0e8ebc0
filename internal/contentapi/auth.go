package contentapi

import "net/http"

// DefaultKeyHeader carries the shared secret unless configured otherwise.
const DefaultKeyHeader = "x-api-key"

// Authenticator applies credentials to outgoing content API requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth sends requests without credentials.
type NoAuth struct{}

// Apply implements Authenticator.
func (NoAuth) Apply(*http.Request) {}

// HeaderAuth sends the shared secret in a request header.
type HeaderAuth struct {
	Header string
	Key    string
}

// Apply implements Authenticator.
func (a HeaderAuth) Apply(req *http.Request) {
	if a.Key == "" {
		return
	}
	header := a.Header
	if header == "" {
		header = DefaultKeyHeader
	}
	req.Header.Set(header, a.Key)
}
