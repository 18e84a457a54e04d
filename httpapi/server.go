// Package httpapi exposes the blog over JSON/HTTP.
//
// The acting user comes from the X-User-ID header. Writes take the version
// token from If-Match or, failing that, from the body's "etag" field.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/etag"
	"github.com/unkn0wn-root/blogcas/service"
)

const HeaderUserID = "X-User-ID"

type Options struct {
	Logger blogcas.Logger
	// RPS and Burst limit requests per actor (or remote address). RPS <= 0
	// disables limiting.
	RPS   float64
	Burst int
	// Extra mounts additional handlers, e.g. "/metrics".
	Extra map[string]http.Handler
}

type Server struct {
	svc     *service.Service
	log     blogcas.Logger
	limiter *limiterPool
}

// New returns the API router.
func New(svc *service.Service, opts Options) http.Handler {
	s := &Server{svc: svc, log: opts.Logger}
	if s.log == nil {
		s.log = blogcas.NopLogger{}
	}
	if opts.RPS > 0 {
		s.limiter = &limiterPool{rps: opts.RPS, burst: opts.Burst}
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	for path, h := range opts.Extra {
		r.Handle(path, h)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.accessLog)
	if s.limiter != nil {
		api.Use(s.rateLimit)
	}
	s.registerPosts(api)
	s.registerComments(api)
	s.registerDashboard(api)
	s.registerUsers(api)
	return r
}

func (s *Server) registerPosts(r *mux.Router) {
	r.HandleFunc("/posts", s.listPosts).Methods(http.MethodGet)
	r.HandleFunc("/posts", s.createPost).Methods(http.MethodPost)
	r.HandleFunc("/posts/categories", s.categories).Methods(http.MethodGet)
	r.HandleFunc("/posts/trending", s.trending).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}", s.getPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}", s.updatePost).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/posts/{id:[0-9]+}", s.deletePost).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{id:[0-9]+}/moderate", s.moderatePost).Methods(http.MethodPost)
}

func (s *Server) registerComments(r *mux.Router) {
	r.HandleFunc("/posts/{id:[0-9]+}/comments", s.listComments).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}/comments/top-level", s.topLevelComments).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}/comments", s.createComment).Methods(http.MethodPost)
	r.HandleFunc("/comments/{id:[0-9]+}", s.updateComment).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/comments/{id:[0-9]+}", s.deleteComment).Methods(http.MethodDelete)
	r.HandleFunc("/comments/{id:[0-9]+}/moderate", s.moderateComment).Methods(http.MethodPost)
}

func (s *Server) registerDashboard(r *mux.Router) {
	r.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)
	r.HandleFunc("/stats/system", s.systemStats).Methods(http.MethodGet)
	r.HandleFunc("/welcome", s.welcome).Methods(http.MethodGet)
}

func (s *Server) registerUsers(r *mux.Router) {
	r.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.getUser).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type envelope struct {
	Data any `json:"data"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// actor is the acting user; 0 when the header is absent.
func actor(r *http.Request) (int64, error) {
	v := r.Header.Get(HeaderUserID)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: bad %s", errBadRequest, HeaderUserID)
	}
	return id, nil
}

func pathID(r *http.Request) int64 {
	// the route pattern only admits digits
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// token prefers If-Match over the body's etag.
func token(r *http.Request, body string) string {
	if h := r.Header.Get("If-Match"); h != "" {
		return etag.Parse(h)
	}
	return body
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http_request", blogcas.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  rec.status,
			"elapsed": time.Since(start).String(),
		})
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderUserID)
		if key == "" {
			key = r.RemoteAddr
		}
		if !s.limiter.allow(key) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Message: "Too many requests."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

