package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"showroom/internal/auth"
	"showroom/internal/catalog"
	"showroom/internal/session"
	pkgauth "showroom/pkg/auth"
)

type Deps struct {
	Catalog  catalog.Store
	Sessions *session.Manager
	Auth     *auth.Service
	// AdminTokenHash is the bcrypt hash of the X-API-Token admin value.
	AdminTokenHash string
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	AutoAdvance    bool
	Autoplay       bool
	Muted          bool
	Controls       bool
	Logger         zerolog.Logger
}

type Server struct {
	deps     Deps
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func New(deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		deps: deps,
		log:  deps.Logger.With().Str("component", "http").Logger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(deps.AllowedOrigins),
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/reels/{id}", s.handleGetReel)

	r.Post("/sessions", s.handleCreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(s.deps.Auth.RequireSession(func(r *http.Request) string { return chi.URLParam(r, "id") }))
		r.Use(s.loadSession)
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleDeleteSession)
		r.Post("/slide", s.handleSlide)
		r.Post("/signals", s.handleSignal)
		r.Put("/items", s.handleReplaceItems)
		r.Get("/ws", s.handleWebsocket)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(pkgauth.TokenMiddleware(s.deps.AdminTokenHash))
		r.Put("/reels/{id}", s.handleSaveReel)
		r.Delete("/reels/{id}", s.handleDeleteReel)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.deps.Sessions.Len(),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// originChecker allows the configured origins. Without a list it falls back
// to the same-origin rule.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, session.ErrNotFound):
		errorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrInvalid), errors.Is(err, session.ErrUnknownSignal):
		errorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrClosed):
		errorJSON(w, http.StatusGone, err.Error())
	default:
		errorJSON(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
