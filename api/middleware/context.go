package middleware

import "context"

type contextKey string

const (
	ctxSalesRepCode  contextKey = "sales_rep_code"
	ctxSessionID     contextKey = "session_id"
	ctxUpstreamToken contextKey = "upstream_token"
)

func SalesRepCodeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSalesRepCode).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// UpstreamTokenFromContext returns the opaque upstream token the auth
// middleware restored from the session.
func UpstreamTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUpstreamToken).(string); ok {
		return v
	}
	return ""
}

// WithSalesRepCode injects the rep identifier; used by tests to skip Auth.
func WithSalesRepCode(ctx context.Context, repCode string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSalesRepCode, repCode)
}

// WithUpstreamToken injects the upstream token; used by tests to skip Auth.
func WithUpstreamToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUpstreamToken, token)
}
