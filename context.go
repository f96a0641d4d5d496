package goSession

import "context"

// requestMeta is the per-request caller information the Engine reads for
// IP throttling and audit events.
type requestMeta struct {
	ip        string
	userAgent string
}

type requestMetaKey struct{}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, edit func(*requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	edit(&m)
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// WithClientIP attaches the caller's IP address to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.ip = ip })
}

// WithUserAgent attaches the HTTP User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.userAgent = userAgent })
}

func clientIPFromContext(ctx context.Context) string { return metaFrom(ctx).ip }
