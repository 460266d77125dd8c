package web

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/sitegallery/internal/auth"
	"github.com/vbonduro/sitegallery/internal/blobstore"
	"github.com/vbonduro/sitegallery/internal/service"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	// AllowedOrigins enables CORS with credentials for the listed origins.
	// Empty means same-origin only.
	AllowedOrigins []string
	SecureCookie   bool
}

type Server struct {
	service *service.ImageService
	auth    *auth.Authenticator
	blobs   blobstore.Store
	assets  fs.FS
	router  chi.Router
	opts    Options
	logger  *slog.Logger
}

func NewServer(svc *service.ImageService, authn *auth.Authenticator, blobs blobstore.Store, assets fs.FS, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		service: svc,
		auth:    authn,
		blobs:   blobs,
		assets:  assets,
		router:  chi.NewRouter(),
		opts:    opts,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/login", s.handleLogin)
	r.Get("/api/check-login", s.handleCheckLogin)
	r.Post("/api/logout", s.handleLogout)
	r.Get("/api/public/images", s.handlePublicImages)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/api/imagenes", s.handleListImages)
		r.Post("/api/imagenes/subir", s.handleUploadImage)
		r.Delete("/api/imagenes/{id}", s.handleDeleteImage)
	})

	r.Get("/uploads/*", s.handleGetUpload)
	r.Handle("/*", http.FileServerFS(s.assets))
}

// securityHeaders adds defensive HTTP response headers to every response.
// Images may come from an external object store, so img-src allows https.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self'; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data: https:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.router)).ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
