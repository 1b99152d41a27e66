package exchange

import (
	"context"

	"github.com/nojima/hreq/request"
)

type contextKey int

const (
	proxyKey contextKey = iota
	configKey
)

func withOverrides(ctx context.Context, d *request.Descriptor) context.Context {
	if p := d.ProxyServer(); p != nil {
		ctx = context.WithValue(ctx, proxyKey, p)
	}
	if c := d.Config(); c != nil {
		ctx = context.WithValue(ctx, configKey, c)
	}
	return ctx
}

func proxyFrom(ctx context.Context) *request.ProxyServer {
	p, _ := ctx.Value(proxyKey).(*request.ProxyServer)
	return p
}

func configFrom(ctx context.Context) *request.Config {
	c, _ := ctx.Value(configKey).(*request.Config)
	return c
}
