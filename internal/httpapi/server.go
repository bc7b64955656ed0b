package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimechecker/internal/cycle"
	"github.com/hamed0406/uptimechecker/internal/domain"
	apimw "github.com/hamed0406/uptimechecker/internal/httpapi/middleware"
	"github.com/hamed0406/uptimechecker/internal/repo"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

type CycleRunner interface {
	Run(ctx context.Context) (cycle.Report, error)
}

type Server struct {
	Logger    *zap.Logger
	History   repo.Reader
	Endpoints []domain.Endpoint
	Cycles    CycleRunner
}

func NewServer(l *zap.Logger, history repo.Reader, endpoints []domain.Endpoint, cycles CycleRunner) *Server {
	return &Server{Logger: l, History: history, Endpoints: endpoints, Cycles: cycles}
}

// Router mounts the read API behind public keys and the cycle trigger
// behind admin keys. An empty origins list allows any origin.
func (s *Server) Router(keys apimw.Keys, origins []string) http.Handler {
	r := chi.NewRouter()
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAny(keys))
		r.Get("/api/endpoints", s.handleListEndpoints)
		r.Get("/api/alerts", s.handleListAlerts)
		r.Get("/api/events", s.handleListEvents)
	})
	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAdmin(keys))
		r.Post("/api/cycles", s.handleRunCycle)
	})
	return r
}

type endpointView struct {
	URL                   string  `json:"url"`
	MaxResponseTime       float64 `json:"max_response_time"` // seconds
	AcceptableStatusCodes []int   `json:"acceptable_status_codes"`
}

type eventView struct {
	EndpointURL           string                `json:"endpoint_url"`
	StatusCode            int                   `json:"status_code"`
	Classification        domain.Classification `json:"classification"`
	ResponseTime          string                `json:"response_time"`
	MaxResponseTime       float64               `json:"max_response_time"`
	AcceptableStatusCodes []int                 `json:"acceptable_status_codes"`
	CreatedAt             string                `json:"created_at"`
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	out := make([]endpointView, 0, len(s.Endpoints))
	for _, ep := range s.Endpoints {
		out = append(out, endpointView{
			URL:                   ep.URL,
			MaxResponseTime:       ep.MaxResponseTime.Seconds(),
			AcceptableStatusCodes: ep.AcceptableStatusCodes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	alerts, err := s.History.RecentAlerts(r.Context(), limit)
	if err != nil {
		s.Logger.Warn("api_alerts_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []domain.AlertRecord{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	events, err := s.History.RecentEvents(r.Context(), r.URL.Query().Get("url"), limit)
	if err != nil {
		s.Logger.Warn("api_events_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		out = append(out, eventView{
			EndpointURL:           ev.EndpointURL,
			StatusCode:            ev.StatusCode,
			Classification:        ev.Classification,
			ResponseTime:          domain.FormatSeconds(ev.ResponseTime),
			MaxResponseTime:       ev.MaxResponseTime.Seconds(),
			AcceptableStatusCodes: ev.AcceptableStatusCodes,
			CreatedAt:             ev.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Cycles.Run(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, cycle.ErrStorageUnavailable) {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{"cycle_id": rep.CycleID, "error": err.Error()})
		return
	}
	s.Logger.Info("api_cycle_run", zap.String("cycle_id", rep.CycleID), zap.Int("endpoints", len(rep.Outcomes)))
	writeJSON(w, http.StatusOK, rep)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		http.Error(w, "bad limit", http.StatusBadRequest)
		return 0, false
	}
	return min(n, maxLimit), true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
