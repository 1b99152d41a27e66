package input

import (
	"time"

	"github.com/nojima/hreq/request"
)

type Options struct {
	JSON      bool
	Form      bool
	ReadStdin bool

	Auth    AuthOptions
	Proxy   string
	Cookies []string
	// Timeout is bound to the request itself; zero leaves the client's.
	Timeout time.Duration
}

type AuthOptions struct {
	Enabled  bool
	Scheme   request.AuthScheme
	UserName string
	Password string
}

type Method string

// Field is a name/value pair taken from a request item.
type Field struct {
	Name   string
	Value  string
	IsFile bool
}

type bodyType int

const (
	emptyBody bodyType = iota
	jsonBody
	formBody
	fileBody
)
