package exchange

import (
	"net/http"
	"time"
)

type Options struct {
	Timeout         time.Duration
	FollowRedirects bool
	MaxRedirects    int
	SkipVerify      bool
	ForceHTTP1      bool

	// Transport replaces the default transport when set. Proxy and TLS
	// settings are applied only when it is an *http.Transport.
	Transport http.RoundTripper
}

const defaultMaxRedirects = 10
