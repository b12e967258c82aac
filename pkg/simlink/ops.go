package simlink

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats is the body of GET /stats.
type Stats struct {
	Session      string    `json:"session"`
	Vehicle      string    `json:"vehicle,omitempty"`
	Telemetry    string    `json:"telemetry"`
	Control      string    `json:"control"`
	SampleRateHz int       `json:"sample_rate_hz"`
	LastSeq      uint32    `json:"last_seq"`
	LastSampleAt time.Time `json:"last_sample_at"`
	Backlog      int       `json:"backlog"`
	Indicator    string    `json:"indicator"`
}

// Stats reports the session's current link state.
func (s *Session) Stats() Stats {
	st := Stats{
		Session:      s.id.String(),
		Telemetry:    s.cfg.TelemetryAddr(),
		Control:      s.cfg.ControlAddr(),
		SampleRateHz: s.cfg.Telemetry.SampleRateHz,
		Backlog:      s.queue.Len(),
		Indicator:    s.dispatcher.Indicator().String(),
	}
	if s.sim != nil {
		st.Vehicle = s.sim.Name()
	}
	if snap, ok := s.sampler.Latest(); ok {
		st.LastSeq = snap.Seq
		st.LastSampleAt = snap.Timestamp
	}
	return st
}

// Handler returns the ops router: /metrics, /healthz, /snapshot and /stats.
func (s *Session) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/snapshot", s.snapshotHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	return r
}

// OpsAddr returns the bound ops address, or "" when the ops server is off.
func (s *Session) OpsAddr() string {
	if s.opsLn == nil {
		return ""
	}
	return s.opsLn.Addr().String()
}

func (s *Session) listenOps() error {
	ln, err := net.Listen("tcp", s.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("listen ops %q: %w", s.cfg.Metrics.Addr, err)
	}
	s.opsLn = ln
	s.opsSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

func (s *Session) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Session) snapshotHandler(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.sampler.Latest()
	if !ok {
		http.Error(w, "no snapshot published yet", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func (s *Session) statsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Stats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
