package exchange

import (
	"crypto/tls"
	"net/http"
	"net/url"

	"github.com/nojima/hreq/request"
	"github.com/pkg/errors"
)

// BuildHTTPClient returns a client whose redirect policy and proxy selection
// honor the per-request settings carried in each request's context.
func BuildHTTPClient(options *Options) (*http.Client, error) {
	client := http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return checkRedirect(options, configFrom(req.Context()), via)
		},
		Timeout: options.Timeout,
	}

	var transp http.RoundTripper
	switch t := options.Transport.(type) {
	case nil:
		transp = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		transp = t.Clone()
	default:
		transp = t
	}
	if httpTransport, ok := transp.(*http.Transport); ok {
		httpTransport.Proxy = proxyFor
		if httpTransport.TLSClientConfig == nil {
			httpTransport.TLSClientConfig = &tls.Config{}
		}
		httpTransport.TLSClientConfig.InsecureSkipVerify = options.SkipVerify
		if options.ForceHTTP1 {
			httpTransport.TLSClientConfig.NextProtos = []string{"http/1.1", "http/1.0"}
			httpTransport.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
		}
	}
	client.Transport = transp

	return &client, nil
}

func checkRedirect(options *Options, config *request.Config, via []*http.Request) error {
	follow := options.FollowRedirects
	limit := options.MaxRedirects
	if config != nil {
		switch config.Redirects {
		case request.FollowRedirects:
			follow = true
		case request.NoRedirects:
			follow = false
		}
		if config.MaxRedirects > 0 {
			limit = config.MaxRedirects
		}
	}
	if !follow {
		return http.ErrUseLastResponse
	}
	if limit <= 0 {
		limit = defaultMaxRedirects
	}
	if len(via) >= limit {
		return errors.Errorf("stopped after %d redirects", limit)
	}
	return nil
}

// proxyFor prefers the request's own proxy and falls back to HTTP_PROXY and
// friends.
func proxyFor(req *http.Request) (*url.URL, error) {
	if p := proxyFrom(req.Context()); p != nil {
		if p.IsBypassed(req.URL.Host) {
			return nil, nil
		}
		return p.URL(), nil
	}
	return http.ProxyFromEnvironment(req)
}
