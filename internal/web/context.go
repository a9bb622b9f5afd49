package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/smartsync/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for run logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already processed by middleware.TrustedRealIP
	ua := r.Header.Get("User-Agent")
	ctx = core.ContextWithIPAddress(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, ua)
	return ctx
}
