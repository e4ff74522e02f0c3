package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"aireone.xyz/serverstatus/internal/monitorconfig"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	stateUp      = "UP"
	stateDown    = "DOWN"
	stateUnknown = "UNKNOWN"
)

// Targets lists the monitored targets.
type Targets interface {
	Targets() []monitorconfig.EffectiveConfig
	Target(name string) (monitorconfig.EffectiveConfig, bool)
}

type Server struct {
	Logger   *zap.Logger
	Targets  Targets
	Cache    *Cache
	Gatherer prometheus.Gatherer
}

func NewServer(l *zap.Logger, targets Targets, cache *Cache, g prometheus.Gatherer) *Server {
	return &Server{Logger: l, Targets: targets, Cache: cache, Gatherer: g}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/targets", s.handleListTargets)
	r.Get("/api/targets/{name}", s.handleGetTarget)

	return r
}

type targetView struct {
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Method    string     `json:"method"`
	Serial    string     `json:"serial"`
	State     string     `json:"state"`
	Up        bool       `json:"up"`
	ChangedAt *time.Time `json:"changed_at,omitempty"`
}

func (s *Server) view(t monitorconfig.EffectiveConfig) targetView {
	v := targetView{
		Name:    t.Name,
		Address: t.Address,
		Method:  string(t.Method),
		Serial:  t.Serial(),
		State:   stateUnknown,
	}

	if st, ok := s.Cache.Get(t.Name); ok {
		v.Up = st.Up
		v.State = stateDown
		if st.Up {
			v.State = stateUp
		}
		changedAt := st.ChangedAt
		v.ChangedAt = &changedAt
	}

	return v
}

func (s *Server) handleListTargets(w http.ResponseWriter, _ *http.Request) {
	targets := s.Targets.Targets()

	views := make([]targetView, 0, len(targets))
	for _, t := range targets {
		views = append(views, s.view(t))
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	t, ok := s.Targets.Target(name)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "target not found"})
		return
	}

	s.writeJSON(w, http.StatusOK, s.view(t))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Error encoding response", zap.Error(err))
	}
}
