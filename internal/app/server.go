package app

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/habit-tracker/internal/habit"
	"github.com/klabast/wb-services/habit-tracker/internal/metrics"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Server is the HTTP presentation layer over a habit store.
type Server struct {
	store *habit.Store
	auth  *Auth
	log   *zap.Logger
	page  *template.Template
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAuth protects mutating routes. A nil Auth leaves them open.
func WithAuth(a *Auth) ServerOption {
	return func(s *Server) { s.auth = a }
}

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a server over store. The store must already be loaded.
func NewServer(store *habit.Store, opts ...ServerOption) *Server {
	s := &Server{
		store: store,
		log:   zap.NewNop(),
		page:  template.Must(template.New("index.html").Funcs(templateFuncs).ParseFS(templateFiles, "templates/index.html")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	guard := s.auth.Require

	// Page and form actions
	mux.HandleFunc("GET /{$}", s.ServeIndex)
	mux.Handle("POST /habits", guard(http.HandlerFunc(s.AddHabitForm)))
	mux.Handle("POST /habits/{id}/toggle", guard(http.HandlerFunc(s.ToggleHabitForm)))
	mux.Handle("POST /habits/{id}/delete", guard(http.HandlerFunc(s.DeleteHabitForm)))

	// JSON API
	mux.HandleFunc("GET /api/habits", s.ListHabits)
	mux.Handle("POST /api/habits", guard(http.HandlerFunc(s.AddHabit)))
	mux.Handle("DELETE /api/habits/{id}", guard(http.HandlerFunc(s.DeleteHabit)))
	mux.Handle("POST /api/habits/{id}/toggle", guard(http.HandlerFunc(s.ToggleHabit)))
	mux.HandleFunc("GET /api/habits/{id}/heatmap", s.GetHeatmap)
	mux.HandleFunc("GET /api/stats", s.GetStats)

	mux.HandleFunc("GET /healthz", s.Healthz)
	mux.Handle("GET /metrics", metrics.Handler())

	return s.logRequests(mux)
}
