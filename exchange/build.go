package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nojima/hreq/request"
	"github.com/nojima/hreq/version"
	"github.com/pkg/errors"
)

// BuildHTTPRequest turns d into a request ready for an http.Client. This is
// where a malformed URL or an unreadable body file is reported.
func BuildHTTPRequest(ctx context.Context, d *request.Descriptor) (*http.Request, error) {
	u, err := d.RequestURL()
	if err != nil {
		return nil, err
	}

	header := d.Header()

	bodyTuple, err := buildHTTPBody(d)
	if err != nil {
		return nil, err
	}

	if header.Get("Content-Type") == "" && bodyTuple.contentType != "" {
		header.Set("Content-Type", bodyTuple.contentType)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", fmt.Sprintf("hreq/%s", version.Current()))
	}

	r, err := http.NewRequestWithContext(withOverrides(ctx, d), d.Method(), u.String(), bodyTuple.body)
	if err != nil {
		if c, ok := bodyTuple.body.(io.Closer); ok {
			c.Close()
		}
		return nil, errors.Wrap(err, "building HTTP request")
	}
	r.Header = header
	if host := header.Get("Host"); host != "" {
		r.Host = host
	}
	if bodyTuple.body != nil {
		r.ContentLength = bodyTuple.contentLength
	}

	for _, c := range d.Cookies() {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	if realm := d.Realm(); realm != nil && realm.Scheme == request.BasicAuth {
		r.SetBasicAuth(realm.Principal, realm.Password)
	}
	return r, nil
}

type bodyTuple struct {
	body          io.Reader
	contentLength int64
	contentType   string
}

func buildHTTPBody(d *request.Descriptor) (bodyTuple, error) {
	body := d.Body()
	form := d.FormParams()
	if body.Kind() != request.NoBody && len(form) > 0 {
		return bodyTuple{}, errors.New("form parameters cannot be combined with an explicit body")
	}

	switch body.Kind() {
	case request.NoBody:
		if len(form) == 0 {
			return bodyTuple{}, nil
		}
		return buildFormBody(form.Encode()), nil
	case request.BytesBody:
		data := body.Bytes()
		return bodyTuple{
			body:          bytes.NewReader(data),
			contentLength: int64(len(data)),
		}, nil
	case request.StreamBody:
		// Unknown length; net/http sends it chunked.
		return bodyTuple{
			body:          body.Stream(),
			contentLength: -1,
		}, nil
	case request.FileBody:
		return buildFileBody(body.Path())
	default:
		return bodyTuple{}, errors.Errorf("unknown body kind: %v", body.Kind())
	}
}

func buildFormBody(encoded string) bodyTuple {
	return bodyTuple{
		body:          strings.NewReader(encoded),
		contentLength: int64(len(encoded)),
		contentType:   "application/x-www-form-urlencoded; charset=utf-8",
	}
}

func buildFileBody(path string) (bodyTuple, error) {
	file, err := os.Open(path)
	if err != nil {
		return bodyTuple{}, errors.Wrapf(err, "opening body file '%s'", path)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return bodyTuple{}, errors.Wrapf(err, "reading size of body file '%s'", path)
	}
	if info.Size() == 0 {
		file.Close()
		return bodyTuple{body: http.NoBody, contentType: mime.TypeByExtension(filepath.Ext(path))}, nil
	}
	return bodyTuple{
		body:          file,
		contentLength: info.Size(),
		contentType:   mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}
