package routers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"aptiview/interview/internal/handlers"
	"aptiview/interview/internal/metrics"
)

type Options struct {
	AllowedOrigins []string
	// UploadsPath and UploadsDir serve locally stored assets when both are set.
	UploadsPath string
	UploadsDir  string
}

func NewRouter(interviewHandler *handlers.InterviewHandler, healthHandler *handlers.HealthHandler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	// no Timeout middleware: interview sockets live for the whole session
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(metrics.Middleware("interview"))

	HealthRoutes(r, healthHandler)
	InterviewRoutes(r, interviewHandler)
	r.Handle("/metrics", metrics.Handler())

	if opts.UploadsPath != "" && opts.UploadsDir != "" && strings.HasPrefix(opts.UploadsPath, "/") {
		prefix := strings.TrimRight(opts.UploadsPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.UploadsDir))))
	}

	return r
}
