package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/cors"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)
type MiddlewareFunc func(ctx context.Context, req *http.Request) (context.Context, error)

// Router wires domain operations to http endpoints. The base context carries
// the configs, the logger, the db, and the snowflake node; every request
// context derives from it.
type Router struct {
	mux         *http.ServeMux
	baseCtx     context.Context
	middlewares []MiddlewareFunc
}

func New(ctx context.Context) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		baseCtx: ctx,
	}
}

func (r *Router) Use(middleware MiddlewareFunc) {
	r.middlewares = append(r.middlewares, middleware)
}

func (r *Router) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(r.mux)
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		serve(r, w, req, bindQuery[Request], handler)
	})
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		serve(r, w, req, bindBody[Request], handler)
	})
}

func serve[Request, Response any](
	r *Router,
	w http.ResponseWriter,
	req *http.Request,
	bind func(*http.Request, *Request) error,
	handler HandlerFunc[Request, Response],
) {
	ctx := r.baseCtx
	for _, middleware := range r.middlewares {
		var err error
		ctx, err = middleware(ctx, req)
		if err != nil {
			writeResponse(ctx, w, newErrorResponse(err))
			return
		}
	}

	var request Request
	if err := bind(req, &request); err != nil {
		xcontext.Logger(ctx).Debugf("Cannot bind the request: %v", err)
		writeResponse(ctx, w, newErrorResponse(errBadRequest))
		return
	}

	resp, err := handler(ctx, &request)
	if err != nil {
		writeResponse(ctx, w, newErrorResponse(err))
		return
	}

	writeResponse(ctx, w, newResponse(resp))
}

func bindQuery[Request any](req *http.Request, out *Request) error {
	values := map[string]string{}
	for key, value := range req.URL.Query() {
		if len(value) > 0 {
			values[key] = value[0]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(values)
}

func bindBody[Request any](req *http.Request, out *Request) error {
	if req.Body == nil {
		return nil
	}

	return json.NewDecoder(req.Body).Decode(out)
}

func writeResponse(ctx context.Context, w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
	}
}
