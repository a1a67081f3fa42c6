package server

import (
	"context"
	"net/http"

	"github.com/prereqgraph/prereqgraph/internal/utils"
	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/graph"
	"github.com/prereqgraph/prereqgraph/pkg/storage"
)

// Store is the part of the course cache the API reads.
type Store interface {
	ListCourses(ctx context.Context, opts storage.ListOptions) ([]catalog.Course, error)
	GetStats(ctx context.Context) ([]storage.SubjectStats, error)
}

type Server struct {
	DB       Store
	Builder  *graph.Builder
	Username string
	Password string
	// StaticDir, if set, is served at / (e.g. the renderer in public/).
	StaticDir string
}

func New(db Store, user, pass string) *Server {
	return &Server{
		DB:       db,
		Builder:  &graph.Builder{Log: utils.Log},
		Username: user,
		Password: pass,
	}
}

// Handler returns the API routes, all behind basic auth when credentials
// are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/courses", s.basicAuth(s.handleCourses))
	mux.HandleFunc("GET /api/graph", s.basicAuth(s.handleGraph))
	mux.HandleFunc("POST /api/parse", s.basicAuth(s.handleParse))

	if s.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.StaticDir))
		mux.Handle("/", s.basicAuthMiddlewareForStatic(fileServer))
	}

	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) authorized(r *http.Request) bool {
	if s.Username == "" && s.Password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	return ok && user == s.Username && pass == s.Password
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) basicAuthMiddlewareForStatic(next http.Handler) http.Handler {
	return s.basicAuth(next.ServeHTTP)
}
