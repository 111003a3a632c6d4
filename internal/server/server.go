package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/pulse"
	"github.com/dmitrymomot/pulse/pkg/health"
	"github.com/dmitrymomot/pulse/pkg/logger"
	"github.com/dmitrymomot/pulse/pkg/realtime"
)

// Deps are the parts of the process the server exposes.
type Deps struct {
	Client   *pulse.Client
	Gatherer prometheus.Gatherer
	Checks   health.Checks
	Logger   *slog.Logger
	// Mounts adds handlers under fixed prefixes, e.g. "/scores".
	Mounts map[string]http.Handler
}

// New returns the HTTP handler of the pulse process.
//
// Routes:
//
//	GET  /healthz                      liveness
//	GET  /readyz                       readiness (redis, realtime)
//	GET  /metrics                      prometheus
//	GET  /status                       connection and resource overview
//	GET  /resources/{name}             fetch, query string as params
//	GET  /resources/{name}/peek        cached snapshot, never fetches
//	POST /resources/{name}/refresh     invalidate and refetch
//	POST /realtime/reconnect           manual reconnect after degrading
//	PUT  /realtime/topics/{topic}      join
//	DELETE /realtime/topics/{topic}    leave
//
// Deps.Mounts are mounted next to these routes.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.NewNope()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	h := &handlers{client: d.Client, log: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(d.Checks, health.WithLogger(d.Logger)))
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/status", h.status)

	r.Route("/resources/{name}", func(r chi.Router) {
		r.Get("/", h.fetch)
		r.Get("/peek", h.peek)
		r.Post("/refresh", h.refresh)
	})

	for prefix, handler := range d.Mounts {
		r.Mount(prefix, handler)
	}

	r.Route("/realtime", func(r chi.Router) {
		r.Post("/reconnect", h.reconnect)
		r.Put("/topics/{topic}", h.join)
		r.Delete("/topics/{topic}", h.leave)
	})

	return r
}

type handlers struct {
	client *pulse.Client
	log    *slog.Logger
}

type resourceStatus struct {
	Name     string `json:"name"`
	InFlight int    `json:"in_flight"`
}

type realtimeStatus struct {
	Status  string   `json:"status"`
	Topics  []string `json:"topics"`
	Attempt int      `json:"attempt"`
}

type statusResponse struct {
	Realtime  *realtimeStatus  `json:"realtime,omitempty"`
	Resources []resourceStatus `json:"resources"`
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Resources: []resourceStatus{}}
	for _, res := range h.client.Resources() {
		resp.Resources = append(resp.Resources, resourceStatus{Name: res.Name(), InFlight: res.InFlight()})
	}

	if m, err := h.client.Realtime(); err == nil {
		s := m.Session()
		resp.Realtime = &realtimeStatus{Status: s.Status.String(), Attempt: s.Attempt, Topics: m.Topics()}
	}

	writeJSON(w, http.StatusOK, resp)
}

type fetchResponse struct {
	Data      any  `json:"data"`
	FromCache bool `json:"from_cache"`
}

func (h *handlers) fetch(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	data, fromCache, err := res.FetchAny(r.Context(), params(r))
	if err != nil {
		// The fallback value is still useful to the caller.
		h.log.WarnContext(r.Context(), "fetch failed", slog.String("resource", res.Name()), slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "data": data})
		return
	}

	writeJSON(w, http.StatusOK, fetchResponse{Data: data, FromCache: fromCache})
}

func (h *handlers) peek(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.PeekAny(params(r)))
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	key := pulse.Key(res.Name(), params(r))
	if err := res.RefreshKey(r.Context(), key); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, res.PeekAny(params(r)))
}

func (h *handlers) reconnect(w http.ResponseWriter, r *http.Request) {
	m, ok := h.realtime(w)
	if !ok {
		return
	}
	if err := m.Reconnect(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	m, ok := h.realtime(w)
	if !ok {
		return
	}
	if err := m.Join(r.Context(), chi.URLParam(r, "topic")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) leave(w http.ResponseWriter, r *http.Request) {
	m, ok := h.realtime(w)
	if !ok {
		return
	}
	if err := m.Leave(r.Context(), chi.URLParam(r, "topic")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) resource(w http.ResponseWriter, r *http.Request) (pulse.ResourceHandle, bool) {
	res, err := h.client.Resource(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return res, true
}

func (h *handlers) realtime(w http.ResponseWriter) (*realtime.Manager, bool) {
	m, err := h.client.Realtime()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return m, true
}

func params(r *http.Request) pulse.Params {
	q := r.URL.Query()
	if len(q) == 0 {
		return nil
	}
	p := make(pulse.Params, len(q))
	for k := range q {
		p[k] = q.Get(k)
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
