package middleware

import (
	"context"
	"net/http"

	"github.com/chesscast/backend/pkg/router"
	"github.com/chesscast/backend/pkg/xcontext"
)

func Logger() router.MiddlewareFunc {
	return func(ctx context.Context, req *http.Request) (context.Context, error) {
		xcontext.Logger(ctx).Infof("%s | %s", req.Method, req.URL.Path)
		return ctx, nil
	}
}
