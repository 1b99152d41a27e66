// Package request accumulates the description of one outgoing HTTP request
// through chained calls and hands out immutable snapshots of it.
//
// A Builder is not safe for concurrent use. Argument errors are recorded by the
// mutator that caused them; the mutators that follow become no-ops and Build
// returns the error.
package request

import (
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is the cause of every error a Builder reports.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

type Builder struct {
	d   Descriptor
	err error
}

// NewBuilder starts a request. An empty method defaults to GET.
func NewBuilder(method, rawURL string) *Builder {
	if method == "" {
		method = http.MethodGet
	}
	return &Builder{
		d: Descriptor{
			method:      method,
			url:         rawURL,
			header:      make(http.Header),
			queryParams: make(url.Values),
			formParams:  make(url.Values),
		},
	}
}

// Err returns the first argument error recorded so far.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) Method(method string) *Builder {
	if b.err != nil {
		return b
	}
	if method == "" {
		return b.fail(invalidArgument("method must not be empty"))
	}
	b.d.method = method
	return b
}

// URL replaces the target URL. It is not parsed until the request is sent.
func (b *Builder) URL(rawURL string) *Builder {
	if b.err != nil {
		return b
	}
	b.d.url = rawURL
	return b
}

func (b *Builder) AddHeader(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		return b.fail(invalidArgument("header name must not be empty"))
	}
	b.d.header.Add(name, value)
	return b
}

// SetHeader drops every value previously given for name.
func (b *Builder) SetHeader(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		return b.fail(invalidArgument("header name must not be empty"))
	}
	b.d.header.Set(name, value)
	return b
}

func (b *Builder) AddQueryParameter(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		return b.fail(invalidArgument("query parameter name must not be empty"))
	}
	b.d.queryParams.Add(name, value)
	return b
}

func (b *Builder) SetQueryParameter(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		return b.fail(invalidArgument("query parameter name must not be empty"))
	}
	b.d.queryParams.Set(name, value)
	return b
}

// AddFormParameter adds an application/x-www-form-urlencoded body field.
// Form parameters are only encoded when no explicit body is set.
func (b *Builder) AddFormParameter(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		return b.fail(invalidArgument("form parameter name must not be empty"))
	}
	b.d.formParams.Add(name, value)
	return b
}

func (b *Builder) SetFormParameter(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		return b.fail(invalidArgument("form parameter name must not be empty"))
	}
	b.d.formParams.Set(name, value)
	return b
}

// SetBody replaces any body with a copy of data.
func (b *Builder) SetBody(data []byte) *Builder {
	if b.err != nil {
		return b
	}
	b.d.body = Body{kind: BytesBody, data: append([]byte{}, data...)}
	return b
}

// SetBodyStream replaces any body with r. The reader is consumed when the
// request is sent.
func (b *Builder) SetBodyStream(r io.Reader) *Builder {
	if b.err != nil {
		return b
	}
	if r == nil {
		return b.fail(invalidArgument("body stream must not be nil"))
	}
	b.d.body = Body{kind: StreamBody, stream: r}
	return b
}

// SetBodyFile replaces any body with the contents of the file at path. The
// file is opened when the request is sent.
func (b *Builder) SetBodyFile(path string) *Builder {
	if b.err != nil {
		return b
	}
	if path == "" {
		return b.fail(invalidArgument("body file path must not be empty"))
	}
	b.d.body = Body{kind: FileBody, path: path}
	return b
}

// SetProxyServer routes the request through p. A nil p removes the proxy.
func (b *Builder) SetProxyServer(p *ProxyServer) *Builder {
	if b.err != nil {
		return b
	}
	if p != nil && p.Host == "" {
		return b.fail(invalidArgument("proxy host must not be empty"))
	}
	b.d.proxy = p.clone()
	return b
}

// SetRealm binds credentials to the request. A nil realm removes them.
func (b *Builder) SetRealm(realm *Realm) *Builder {
	if b.err != nil {
		return b
	}
	if realm != nil {
		if realm.Principal == "" {
			return b.fail(invalidArgument("realm principal must not be empty"))
		}
		if realm.Scheme != BasicAuth && realm.Scheme != DigestAuth {
			return b.fail(invalidArgument("unknown auth scheme: %q", realm.Scheme))
		}
	}
	b.d.realm = realm.clone()
	return b
}

// SetConfig sets per-request overrides. A nil config removes them.
func (b *Builder) SetConfig(config *Config) *Builder {
	if b.err != nil {
		return b
	}
	b.d.config = config.clone()
	return b
}

// AddCookie adds c, replacing a cookie with the same name, domain and path.
func (b *Builder) AddCookie(c Cookie) *Builder {
	if b.err != nil {
		return b
	}
	if c.Name == "" {
		return b.fail(invalidArgument("cookie name must not be empty"))
	}
	for i := range b.d.cookies {
		if b.d.cookies[i].sameIdentity(c) {
			b.d.cookies[i] = c
			return b
		}
	}
	b.d.cookies = append(b.d.cookies, c)
	return b
}

// Build returns a snapshot of everything configured so far. The builder keeps
// its state, so later calls accumulate on top of it.
func (b *Builder) Build() (*Descriptor, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Descriptor{
		method:      b.d.method,
		url:         b.d.url,
		header:      b.d.header.Clone(),
		queryParams: cloneValues(b.d.queryParams),
		formParams:  cloneValues(b.d.formParams),
		body:        b.d.body.clone(),
		proxy:       b.d.proxy.clone(),
		realm:       b.d.realm.clone(),
		config:      b.d.config.clone(),
		cookies:     b.d.Cookies(),
	}, nil
}
