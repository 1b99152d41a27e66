package output

import (
	"context"
	"io"
	"net/http"

	"github.com/nojima/hreq/exchange"
	"github.com/nojima/hreq/request"
)

type Printer interface {
	PrintStatusLine(proto string, status string, statusCode int) error
	PrintRequestLine(d *request.Descriptor) error
	PrintHeader(header http.Header) error
	PrintBody(body io.Reader, contentType string) error
	PrintRequestBody(d *request.Descriptor) error
}

// RequestHeader returns the header fields d is sent with, including the
// defaults, cookies and basic credentials added when the request is built.
func RequestHeader(d *request.Descriptor) (http.Header, error) {
	r, err := exchange.BuildHTTPRequest(context.Background(), d)
	if err != nil {
		return nil, err
	}
	// a streamed body is read only once, by the real exchange
	if r.Body != nil && d.Body().Kind() != request.StreamBody {
		r.Body.Close()
	}
	return r.Header, nil
}

func requestTarget(d *request.Descriptor) string {
	u, err := d.RequestURL()
	if err != nil {
		return d.URL()
	}
	return u.String()
}
