package middleware

import (
	"context"
	"net/http"

	"github.com/chesscast/backend/pkg/router"
	"github.com/chesscast/backend/pkg/xcontext"
)

// WithRequestUser threads the caller identity from the X-User-Id header.
// Authentication itself happens upstream of this service.
func WithRequestUser() router.MiddlewareFunc {
	return func(ctx context.Context, req *http.Request) (context.Context, error) {
		return xcontext.WithRequestUserID(ctx, req.Header.Get("X-User-Id")), nil
	}
}
