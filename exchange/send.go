package exchange

import (
	"context"
	"io"
	"net/http"

	"github.com/nojima/hreq/logger"
	"github.com/nojima/hreq/request"
	"github.com/pkg/errors"
)

// Send dispatches d with a client built from options.
func Send(ctx context.Context, d *request.Descriptor, options *Options) (*http.Response, error) {
	client, err := BuildHTTPClient(options)
	if err != nil {
		return nil, err
	}
	return SendWithClient(ctx, client, d)
}

// SendWithClient dispatches d through client. A per-request timeout covers the
// whole exchange including reading the body, and is released when the
// response body is closed.
func SendWithClient(ctx context.Context, client *http.Client, d *request.Descriptor) (*http.Response, error) {
	cancel := context.CancelFunc(func() {})
	if config := d.Config(); config != nil && config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
	}

	resp, err := sendOnce(ctx, client, d, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	if realm := d.Realm(); realm != nil && realm.Scheme == request.DigestAuth &&
		resp.StatusCode == http.StatusUnauthorized &&
		isDigestChallenge(resp.Header.Get("WWW-Authenticate")) {
		resp, err = answerDigestChallenge(ctx, client, d, resp)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func answerDigestChallenge(ctx context.Context, client *http.Client, d *request.Descriptor, resp *http.Response) (*http.Response, error) {
	challenge, err := parseDigestChallenge(resp.Header.Get("WWW-Authenticate"))
	drainAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	if d.Body().Kind() == request.StreamBody {
		return nil, errors.New("cannot answer digest challenge: a streamed body cannot be sent twice")
	}
	logger.Get().Debug().Str("realm", challenge.realm).Msg("answering digest challenge")
	return sendOnce(ctx, client, d, challenge)
}

func sendOnce(ctx context.Context, client *http.Client, d *request.Descriptor, challenge *digestChallenge) (*http.Response, error) {
	r, err := BuildHTTPRequest(ctx, d)
	if err != nil {
		return nil, err
	}
	if challenge != nil {
		authorization, err := digestAuthorization(d.Realm(), r, challenge)
		if err != nil {
			if r.Body != nil {
				r.Body.Close()
			}
			return nil, err
		}
		r.Header.Set("Authorization", authorization)
	}

	log := logger.Get()
	log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Int64("content_length", r.ContentLength).
		Msg("sending request")

	resp, err := client.Do(r)
	if err != nil {
		return nil, errors.Wrap(err, "sending HTTP request")
	}

	log.Debug().
		Str("proto", resp.Proto).
		Int("status", resp.StatusCode).
		Msg("received response")
	return resp, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	body.Close()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
