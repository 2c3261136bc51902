package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"rtdp/mdp"
)

// StateRequest is the body of POST /act and POST /value.
type StateRequest struct {
	State mdp.State `json:"state"`
}

// ActionResponse is returned by POST /act.
type ActionResponse struct {
	Action    mdp.Action `json:"action"`
	Name      string     `json:"name,omitempty"`
	Lower     float64    `json:"lower"`
	Upper     float64    `json:"upper"`
	Converged bool       `json:"converged"`
	Trials    int        `json:"trials"`
	Seconds   float64    `json:"seconds"`
}

// ValueResponse is returned by POST /value.
type ValueResponse struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Width float64 `json:"width"`
}

// Server exposes an agent over HTTP.
type Server struct {
	agent   Agent
	planner Planner
	model   mdp.Model
	mux     *http.ServeMux
}

// NewServer serves agent decisions and the planner's value bounds. Metrics
// from gatherer are served on /metrics when it is non-nil.
func NewServer(agent Agent, planner Planner, model mdp.Model, gatherer prometheus.Gatherer) *Server {
	s := &Server{agent: agent, planner: planner, model: model, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /act", s.handleAct)
	s.mux.HandleFunc("POST /value", s.handleValue)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting agent server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) decodeState(w http.ResponseWriter, r *http.Request) (mdp.State, bool) {
	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if len(req.State) == 0 {
		http.Error(w, "bad request: missing state", http.StatusBadRequest)
		return nil, false
	}
	return req.State, true
}

func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	state, ok := s.decodeState(w, r)
	if !ok {
		return
	}

	action, metric, err := s.agent.FindAction(state)
	if err != nil {
		log.Error().Err(err).Msg("Failed to find action")
		http.Error(w, "failed to find action: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := ActionResponse{
		Action:    action,
		Lower:     metric.Lower,
		Upper:     metric.Upper,
		Converged: metric.Converged,
		Trials:    metric.Trials,
		Seconds:   metric.Duration.Seconds(),
	}
	if action != mdp.NoAction {
		resp.Name = s.model.ActionName(action)
	}
	log.Debug().Any("state", state).Int("action", int(action)).Msg("Served action")
	writeJSON(w, resp)
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	state, ok := s.decodeState(w, r)
	if !ok {
		return
	}
	v := s.planner.ValueAt(state)
	writeJSON(w, ValueResponse{Lower: v.Lower, Upper: v.Upper, Width: v.Width()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response: "+err.Error(), http.StatusInternalServerError)
	}
}
