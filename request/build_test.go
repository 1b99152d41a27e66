package request

import (
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func mustBuild(t *testing.T, b *Builder) *Descriptor {
	d, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}
	return d
}

func TestBuilder_AddHeaderPreservesOrder(t *testing.T) {
	// Setup
	b := NewBuilder("GET", "http://example.com/")

	// Exercise
	b.AddHeader("Accept", "a").AddHeader("Accept", "b").AddHeader("X-Other", "z")
	d := mustBuild(t, b)

	// Verify
	expected := http.Header{
		"Accept":  []string{"a", "b"},
		"X-Other": []string{"z"},
	}
	if !reflect.DeepEqual(expected, d.Header()) {
		t.Errorf("unexpected header: expected=%v, actual=%v", expected, d.Header())
	}
}

func TestBuilder_SetHeaderReplaces(t *testing.T) {
	// Setup
	b := NewBuilder("GET", "http://example.com/")
	b.AddHeader("Accept", "a").AddHeader("Accept", "b")

	// Exercise
	d := mustBuild(t, b.SetHeader("Accept", "c"))

	// Verify
	expected := []string{"c"}
	if actual := d.Header()["Accept"]; !reflect.DeepEqual(expected, actual) {
		t.Errorf("unexpected Accept: expected=%v, actual=%v", expected, actual)
	}
}

func TestBuilder_Parameters(t *testing.T) {
	testCases := []struct {
		title         string
		apply         func(b *Builder)
		expectedQuery url.Values
		expectedForm  url.Values
	}{
		{
			title: "Add keeps every value",
			apply: func(b *Builder) {
				b.AddQueryParameter("q", "1").AddQueryParameter("q", "2")
				b.AddFormParameter("f", "x").AddFormParameter("f", "y")
			},
			expectedQuery: url.Values{"q": {"1", "2"}},
			expectedForm:  url.Values{"f": {"x", "y"}},
		},
		{
			title: "Set replaces previous values",
			apply: func(b *Builder) {
				b.AddQueryParameter("q", "1").SetQueryParameter("q", "3")
				b.AddFormParameter("f", "x").SetFormParameter("f", "z")
			},
			expectedQuery: url.Values{"q": {"3"}},
			expectedForm:  url.Values{"f": {"z"}},
		},
		{
			title:         "Nothing added",
			apply:         func(b *Builder) {},
			expectedQuery: url.Values{},
			expectedForm:  url.Values{},
		},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			b := NewBuilder("POST", "http://example.com/")
			tt.apply(b)
			d := mustBuild(t, b)
			if !reflect.DeepEqual(tt.expectedQuery, d.QueryParams()) {
				t.Errorf("unexpected query: expected=%v, actual=%v", tt.expectedQuery, d.QueryParams())
			}
			if !reflect.DeepEqual(tt.expectedForm, d.FormParams()) {
				t.Errorf("unexpected form: expected=%v, actual=%v", tt.expectedForm, d.FormParams())
			}
		})
	}
}

func TestBuilder_BodyLastSetWins(t *testing.T) {
	testCases := []struct {
		title    string
		apply    func(b *Builder)
		expected Body
	}{
		{
			title:    "No body",
			apply:    func(b *Builder) {},
			expected: Body{},
		},
		{
			title: "Bytes then file",
			apply: func(b *Builder) {
				b.SetBody([]byte("hello")).SetBodyFile("/tmp/data.bin")
			},
			expected: Body{kind: FileBody, path: "/tmp/data.bin"},
		},
		{
			title: "File then bytes",
			apply: func(b *Builder) {
				b.SetBodyFile("/tmp/data.bin").SetBody([]byte("hello"))
			},
			expected: Body{kind: BytesBody, data: []byte("hello")},
		},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			b := NewBuilder("POST", "http://example.com/")
			tt.apply(b)
			d := mustBuild(t, b)
			if !reflect.DeepEqual(tt.expected, d.Body()) {
				t.Errorf("unexpected body: expected=%+v, actual=%+v", tt.expected, d.Body())
			}
		})
	}
}

func TestBuilder_StreamBody(t *testing.T) {
	// Setup
	stream := strings.NewReader("streamed")

	// Exercise
	d := mustBuild(t, NewBuilder("PUT", "http://example.com/").
		SetBody([]byte("discarded")).
		SetBodyStream(stream))

	// Verify
	body := d.Body()
	if body.Kind() != StreamBody {
		t.Fatalf("unexpected body kind: expected=%v, actual=%v", StreamBody, body.Kind())
	}
	if body.Stream() != stream {
		t.Errorf("stream was not kept as given")
	}
	if body.Bytes() != nil {
		t.Errorf("bytes body should be discarded: actual=%q", body.Bytes())
	}
}

func TestBuilder_SnapshotsDoNotAlias(t *testing.T) {
	// Setup
	data := []byte("first")
	b := NewBuilder("POST", "http://example.com/").
		AddQueryParameter("q", "1").
		AddHeader("X-Foo", "a").
		SetBody(data)

	// Exercise
	first := mustBuild(t, b)
	data[0] = 'F'
	b.AddQueryParameter("q", "2").AddHeader("X-Foo", "b").AddCookie(Cookie{Name: "c", Value: "1"})
	second := mustBuild(t, b)

	// Verify
	if expected := (url.Values{"q": {"1"}}); !reflect.DeepEqual(expected, first.QueryParams()) {
		t.Errorf("unexpected first query: expected=%v, actual=%v", expected, first.QueryParams())
	}
	if expected := (url.Values{"q": {"1", "2"}}); !reflect.DeepEqual(expected, second.QueryParams()) {
		t.Errorf("unexpected second query: expected=%v, actual=%v", expected, second.QueryParams())
	}
	if expected := []string{"a"}; !reflect.DeepEqual(expected, first.Header()["X-Foo"]) {
		t.Errorf("unexpected first header: expected=%v, actual=%v", expected, first.Header()["X-Foo"])
	}
	if first.Cookies() != nil {
		t.Errorf("first snapshot should have no cookies: actual=%v", first.Cookies())
	}
	if string(first.Body().Bytes()) != "first" {
		t.Errorf("body should be copied on SetBody: actual=%q", first.Body().Bytes())
	}
}

func TestDescriptor_AccessorsReturnCopies(t *testing.T) {
	// Setup
	d := mustBuild(t, NewBuilder("GET", "http://example.com/").
		AddHeader("X-Foo", "a").
		AddQueryParameter("q", "1").
		SetBody([]byte("body")).
		SetProxyServer(&ProxyServer{Host: "proxy", NonProxyHosts: []string{"localhost"}}).
		SetRealm(&Realm{Scheme: BasicAuth, Principal: "alice"}).
		SetConfig(&Config{Timeout: time.Second}))

	// Exercise
	d.Header().Set("X-Foo", "changed")
	d.QueryParams().Add("q", "2")
	d.Body().Bytes()[0] = 'B'
	d.ProxyServer().NonProxyHosts[0] = "changed"
	d.Realm().Principal = "mallory"
	d.Config().Timeout = time.Hour

	// Verify
	if d.Header().Get("X-Foo") != "a" {
		t.Errorf("header was mutated through accessor")
	}
	if len(d.QueryParams()["q"]) != 1 {
		t.Errorf("query was mutated through accessor")
	}
	if string(d.Body().Bytes()) != "body" {
		t.Errorf("body was mutated through accessor")
	}
	if d.ProxyServer().NonProxyHosts[0] != "localhost" {
		t.Errorf("proxy was mutated through accessor")
	}
	if d.Realm().Principal != "alice" {
		t.Errorf("realm was mutated through accessor")
	}
	if d.Config().Timeout != time.Second {
		t.Errorf("config was mutated through accessor")
	}
}

func TestBuilder_AddCookieDeduplicates(t *testing.T) {
	// Setup
	b := NewBuilder("GET", "http://example.com/")

	// Exercise
	b.AddCookie(Cookie{Name: "session", Value: "1", Domain: "example.com", Path: "/"}).
		AddCookie(Cookie{Name: "lang", Value: "en"}).
		AddCookie(Cookie{Name: "session", Value: "2", Domain: "EXAMPLE.com", Path: "/"}).
		AddCookie(Cookie{Name: "session", Value: "3", Domain: "example.com", Path: "/api"})
	d := mustBuild(t, b)

	// Verify
	expected := []Cookie{
		{Name: "session", Value: "2", Domain: "EXAMPLE.com", Path: "/"},
		{Name: "lang", Value: "en"},
		{Name: "session", Value: "3", Domain: "example.com", Path: "/api"},
	}
	if !reflect.DeepEqual(expected, d.Cookies()) {
		t.Errorf("unexpected cookies: expected=%+v, actual=%+v", expected, d.Cookies())
	}
}

func TestBuilder_NilClearsOptionalFields(t *testing.T) {
	// Setup
	b := NewBuilder("GET", "http://example.com/").
		SetProxyServer(&ProxyServer{Host: "proxy", Port: 3128}).
		SetRealm(&Realm{Scheme: DigestAuth, Principal: "alice", Password: "secret"}).
		SetConfig(&Config{Timeout: time.Second})

	// Exercise
	d := mustBuild(t, b.SetProxyServer(nil).SetRealm(nil).SetConfig(nil))

	// Verify
	if d.ProxyServer() != nil || d.Realm() != nil || d.Config() != nil {
		t.Errorf("optional fields should be cleared: proxy=%v, realm=%v, config=%v",
			d.ProxyServer(), d.Realm(), d.Config())
	}
}

func TestBuilder_InvalidArgument(t *testing.T) {
	testCases := []struct {
		title string
		apply func(b *Builder)
	}{
		{title: "Empty method", apply: func(b *Builder) { b.Method("") }},
		{title: "Empty header name", apply: func(b *Builder) { b.AddHeader("", "v") }},
		{title: "Empty header name on set", apply: func(b *Builder) { b.SetHeader("", "v") }},
		{title: "Empty query name", apply: func(b *Builder) { b.AddQueryParameter("", "v") }},
		{title: "Empty form name", apply: func(b *Builder) { b.AddFormParameter("", "v") }},
		{title: "Nil stream", apply: func(b *Builder) { b.SetBodyStream(nil) }},
		{title: "Empty file path", apply: func(b *Builder) { b.SetBodyFile("") }},
		{title: "Proxy without host", apply: func(b *Builder) { b.SetProxyServer(&ProxyServer{Port: 80}) }},
		{title: "Realm without principal", apply: func(b *Builder) { b.SetRealm(&Realm{Scheme: BasicAuth}) }},
		{title: "Unknown scheme", apply: func(b *Builder) { b.SetRealm(&Realm{Scheme: "ntlm", Principal: "a"}) }},
		{title: "Cookie without name", apply: func(b *Builder) { b.AddCookie(Cookie{Value: "v"}) }},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			b := NewBuilder("GET", "http://example.com/")
			tt.apply(b)
			if errors.Cause(b.Err()) != ErrInvalidArgument {
				t.Errorf("unexpected Err(): expected=%v, actual=%v", ErrInvalidArgument, b.Err())
			}
			d, err := b.Build()
			if d != nil || errors.Cause(err) != ErrInvalidArgument {
				t.Errorf("unexpected Build result: descriptor=%v, err=%v", d, err)
			}
		})
	}
}

func TestBuilder_MutatorsAfterErrorAreIgnored(t *testing.T) {
	// Setup
	b := NewBuilder("GET", "http://example.com/")

	// Exercise
	b.AddHeader("", "first").AddCookie(Cookie{}).AddHeader("X-Foo", "bar")

	// Verify
	if !strings.Contains(b.Err().Error(), "header name") {
		t.Errorf("first error should be kept: actual=%v", b.Err())
	}
	if len(b.d.header) != 0 {
		t.Errorf("header should not change after an error: actual=%v", b.d.header)
	}
}

func TestBuilder_DefaultsAndMethod(t *testing.T) {
	d := mustBuild(t, NewBuilder("", "example.com"))
	if d.Method() != "GET" {
		t.Errorf("unexpected default method: %s", d.Method())
	}

	d = mustBuild(t, NewBuilder("GET", "http://a/").Method("DELETE").URL("http://b/"))
	if d.Method() != "DELETE" || d.URL() != "http://b/" {
		t.Errorf("unexpected method or URL: method=%s, url=%s", d.Method(), d.URL())
	}
}

func TestBuilder_MalformedURLIsNotRejected(t *testing.T) {
	d, err := NewBuilder("GET", "http://[::1").Build()
	if err != nil {
		t.Fatalf("unexpected error: err=%+v", err)
	}
	if _, err := d.RequestURL(); err == nil {
		t.Errorf("RequestURL should fail for a malformed URL")
	}
}

func TestDescriptor_RequestURL(t *testing.T) {
	testCases := []struct {
		title    string
		url      string
		params   [][2]string
		expected string
	}{
		{
			title:    "No parameters",
			url:      "http://example.com/hello?b=2&a=1",
			expected: "http://example.com/hello?b=2&a=1",
		},
		{
			title:    "Typical case",
			url:      "http://example.com/hello",
			params:   [][2]string{{"foo", "bar"}, {"fizz", "buzz"}},
			expected: "http://example.com/hello?fizz=buzz&foo=bar",
		},
		{
			title:    "Multiple values with a key in both URL and parameters",
			url:      "http://example.com/hello?foo=a&foo=z",
			params:   [][2]string{{"foo", "value 1"}, {"foo", "value 2"}},
			expected: "http://example.com/hello?foo=a&foo=z&foo=value+1&foo=value+2",
		},
		{
			title:    "Query of the URL is kept as written",
			url:      "http://example.com/hello?b=2&a=1&flag",
			params:   [][2]string{{"z", "9"}},
			expected: "http://example.com/hello?b=2&a=1&flag&z=9",
		},
		{
			title:    "Semicolons in the URL query are left alone",
			url:      "http://example.com/hello?x=1;y=2",
			params:   [][2]string{{"a", "b"}},
			expected: "http://example.com/hello?x=1;y=2&a=b",
		},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			b := NewBuilder("GET", tt.url)
			for _, p := range tt.params {
				b.AddQueryParameter(p[0], p[1])
			}
			u, err := mustBuild(t, b).RequestURL()
			if err != nil {
				t.Fatalf("unexpected error: err=%+v", err)
			}
			if u.String() != tt.expected {
				t.Errorf("unexpected URL: expected=%s, actual=%s", tt.expected, u)
			}
		})
	}
}

func TestProxyServer(t *testing.T) {
	p := &ProxyServer{
		Host:          "proxy.local",
		Port:          3128,
		Principal:     "bob",
		Password:      "pw",
		NonProxyHosts: []string{"localhost", "*.internal"},
	}

	if expected := "http://bob:pw@proxy.local:3128"; p.URL().String() != expected {
		t.Errorf("unexpected proxy URL: expected=%s, actual=%s", expected, p.URL())
	}

	testCases := []struct {
		host     string
		expected bool
	}{
		{host: "localhost", expected: true},
		{host: "localhost:8080", expected: true},
		{host: "api.INTERNAL", expected: true},
		{host: "internal", expected: false},
		{host: "example.com", expected: false},
	}
	for _, tt := range testCases {
		if actual := p.IsBypassed(tt.host); actual != tt.expected {
			t.Errorf("unexpected IsBypassed(%q): expected=%v, actual=%v", tt.host, tt.expected, actual)
		}
	}
}

func TestProxyServer_IsBypassedNoProxyForms(t *testing.T) {
	p := &ProxyServer{
		Host:          "proxy.local",
		Port:          3128,
		NonProxyHosts: []string{".example.com", "example.org", "10.0.0.0/8", "db.local:5432"},
	}

	testCases := []struct {
		host     string
		expected bool
	}{
		{host: "api.example.com", expected: true},
		{host: "example.com", expected: false},
		{host: "example.org", expected: true},
		{host: "sub.example.org", expected: true},
		{host: "notexample.org", expected: false},
		{host: "10.1.2.3", expected: true},
		{host: "10.1.2.3:8080", expected: true},
		{host: "11.1.2.3", expected: false},
		{host: "db.local:5432", expected: true},
		{host: "db.local:80", expected: false},
		{host: "127.0.0.1:8080", expected: true},
	}
	for _, tt := range testCases {
		t.Run(tt.host, func(t *testing.T) {
			if actual := p.IsBypassed(tt.host); actual != tt.expected {
				t.Errorf("unexpected IsBypassed(%q): expected=%v, actual=%v", tt.host, tt.expected, actual)
			}
		})
	}
}

func TestProxyServer_IsBypassedWildcard(t *testing.T) {
	p := &ProxyServer{Host: "proxy.local", NonProxyHosts: []string{"*"}}

	if !p.IsBypassed("anything.example.com") {
		t.Errorf("\"*\" must bypass every host")
	}
}
