package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "client_ip"
	ctxKeyUserAgent contextKey = "client_ua"
	ctxKeyRun       contextKey = "run"
)

// ContextWithIPAddress records the client IP for run logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent records the client User-Agent for run logging.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// GetIPAddressFromContext extracts the client IP.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetUserAgentFromContext extracts the client User-Agent.
func GetUserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// ContextWithRun attaches a run to ctx.
func ContextWithRun(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, ctxKeyRun, r)
}

// RunFromContext returns the run attached to ctx, or nil.
func RunFromContext(ctx context.Context) *Run {
	r, _ := ctx.Value(ctxKeyRun).(*Run)
	return r
}
