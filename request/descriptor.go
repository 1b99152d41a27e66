package request

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpproxy"
)

// Descriptor is an immutable snapshot of one outgoing HTTP request.
// Accessors return copies, so a Descriptor can be shared between goroutines.
type Descriptor struct {
	method      string
	url         string
	header      http.Header
	queryParams url.Values
	formParams  url.Values
	body        Body
	proxy       *ProxyServer
	realm       *Realm
	config      *Config
	cookies     []Cookie
}

func (d *Descriptor) Method() string { return d.method }

// URL returns the target URL exactly as it was given to the builder.
func (d *Descriptor) URL() string { return d.url }

func (d *Descriptor) Header() http.Header { return d.header.Clone() }

func (d *Descriptor) QueryParams() url.Values { return cloneValues(d.queryParams) }

func (d *Descriptor) FormParams() url.Values { return cloneValues(d.formParams) }

func (d *Descriptor) Body() Body { return d.body.clone() }

func (d *Descriptor) ProxyServer() *ProxyServer { return d.proxy.clone() }

func (d *Descriptor) Realm() *Realm { return d.realm.clone() }

func (d *Descriptor) Config() *Config { return d.config.clone() }

func (d *Descriptor) Cookies() []Cookie {
	if len(d.cookies) == 0 {
		return nil
	}
	return append([]Cookie(nil), d.cookies...)
}

// RequestURL parses the target URL and appends the query parameters after
// the query string the URL already carries, which is kept as written.
func (d *Descriptor) RequestURL() (*url.URL, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing URL: %s", d.url)
	}
	if len(d.queryParams) == 0 {
		return u, nil
	}
	encoded := d.queryParams.Encode()
	if u.RawQuery == "" {
		u.RawQuery = encoded
	} else {
		u.RawQuery += "&" + encoded
	}
	return u, nil
}

type BodyKind int

const (
	NoBody BodyKind = iota
	BytesBody
	StreamBody
	FileBody
)

func (k BodyKind) String() string {
	switch k {
	case NoBody:
		return "none"
	case BytesBody:
		return "bytes"
	case StreamBody:
		return "stream"
	case FileBody:
		return "file"
	default:
		return "BodyKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Body holds at most one body representation.
type Body struct {
	kind   BodyKind
	data   []byte
	stream io.Reader
	path   string
}

func (b Body) Kind() BodyKind { return b.kind }

// Bytes returns a copy of the raw body. Only meaningful for BytesBody.
func (b Body) Bytes() []byte {
	if b.data == nil {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// Stream returns the reader of a StreamBody. The reader is shared by every
// snapshot taken while it was set.
func (b Body) Stream() io.Reader { return b.stream }

// Path returns the file of a FileBody.
func (b Body) Path() string { return b.path }

func (b Body) clone() Body {
	b.data = b.Bytes()
	return b
}

type ProxyServer struct {
	Protocol      string // "http" or "https"; empty means "http"
	Host          string
	Port          int
	Principal     string
	Password      string
	NonProxyHosts []string
}

// URL renders the proxy as a URL suitable for http.Transport.Proxy.
func (p *ProxyServer) URL() *url.URL {
	scheme := p.Protocol
	if scheme == "" {
		scheme = "http"
	}
	host := p.Host
	if p.Port > 0 {
		host = host + ":" + strconv.Itoa(p.Port)
	}
	u := &url.URL{Scheme: scheme, Host: host}
	if p.Principal != "" {
		u.User = url.UserPassword(p.Principal, p.Password)
	}
	return u
}

// IsBypassed reports whether requests to host must not go through the proxy.
// NonProxyHosts follows the NO_PROXY conventions: "example.com" also covers
// its subdomains, ".example.com" and "*.example.com" only the subdomains,
// CIDR ranges match IP hosts, and "*" matches everything. Loopback hosts are
// always bypassed.
func (p *ProxyServer) IsBypassed(host string) bool {
	config := httpproxy.Config{
		HTTPProxy: p.URL().String(),
		NoProxy:   strings.Join(p.NonProxyHosts, ","),
	}
	proxyURL, err := config.ProxyFunc()(&url.URL{Scheme: "http", Host: host})
	return err == nil && proxyURL == nil
}

func (p *ProxyServer) clone() *ProxyServer {
	if p == nil {
		return nil
	}
	c := *p
	c.NonProxyHosts = append([]string(nil), p.NonProxyHosts...)
	return &c
}

type AuthScheme string

const (
	BasicAuth  AuthScheme = "basic"
	DigestAuth AuthScheme = "digest"
)

// Realm is the authentication context bound to a request.
type Realm struct {
	Scheme    AuthScheme
	Principal string
	Password  string
}

func (r *Realm) clone() *Realm {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

type RedirectPolicy int

const (
	// DefaultRedirects leaves the decision to the client.
	DefaultRedirects RedirectPolicy = iota
	FollowRedirects
	NoRedirects
)

// Config overrides client-wide behavior for a single request.
// Zero values mean "use the client's setting".
type Config struct {
	Timeout      time.Duration
	Redirects    RedirectPolicy
	MaxRedirects int
}

func (c *Config) clone() *Config {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
}

func (c Cookie) sameIdentity(other Cookie) bool {
	return c.Name == other.Name &&
		strings.EqualFold(c.Domain, other.Domain) &&
		c.Path == other.Path
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return url.Values{}
	}
	c := make(url.Values, len(v))
	for name, values := range v {
		c[name] = append([]string(nil), values...)
	}
	return c
}
