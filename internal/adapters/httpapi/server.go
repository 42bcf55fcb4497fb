// Package httpapi exposes the service over HTTP with a chi router. Every
// handler resolves the caller from the request context and passes it to the
// service explicitly.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"programhub/internal/auth"
	"programhub/internal/blob"
	"programhub/internal/core"
	"programhub/internal/entitymodel"
	"programhub/internal/observability"
)

// ActivityFeed lists recent audit entries, newest first.
type ActivityFeed interface {
	Recent(ctx context.Context, n int) ([]core.AuditEntry, error)
}

// Options wires the optional collaborators. A nil Verifier leaves every API
// request unauthenticated.
type Options struct {
	Verifier *auth.Verifier
	Files    *blob.FileStore
	Feed     ActivityFeed
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	// MaxUploadBytes bounds multipart bodies. Defaults to the file store limit.
	MaxUploadBytes int64
}

type server struct {
	svc       *core.Service
	files     *blob.FileStore
	feed      ActivityFeed
	logger    *zap.Logger
	maxUpload int64
}

// New builds the router.
func New(svc *core.Service, opts Options) http.Handler {
	s := &server{svc: svc, files: opts.Files, feed: opts.Feed, logger: opts.Logger, maxUpload: opts.MaxUploadBytes}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = blob.DefaultMaxUploadSize
		if s.files != nil {
			s.maxUpload = s.files.MaxSize()
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.accessLog, middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.files != nil {
		r.Get(blob.DefaultBaseURL+"/*", s.serveFile)
	}

	r.Route("/api", func(r chi.Router) {
		if opts.Verifier != nil {
			r.Use(auth.Middleware(opts.Verifier, func(w http.ResponseWriter, _ *http.Request, err error) {
				writeError(w, err)
			}))
		}
		r.Method(http.MethodGet, "/openapi.yaml", entitymodel.NewOpenAPIHandler())
		r.Get("/reports/budget", s.budgetReport)
		r.Get("/activity", s.activity)
		r.Post("/tasks/{id}/comments", s.addComment)

		r.Get("/{kind}", s.list)
		r.Post("/{kind}", s.create)
		r.Get("/{kind}/{id}", s.get)
		r.Put("/{kind}/{id}", s.update)
		r.Patch("/{kind}/{id}", s.update)
		r.Delete("/{kind}/{id}", s.delete)
	})
	return r
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func principal(r *http.Request) core.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}
