// Package server exposes one HTTP endpoint per operation kind. Each request
// performs a full benchmark run and answers with its raw samples.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crud-benchmark/internal/config"
	"crud-benchmark/internal/results"
	"crud-benchmark/internal/runner"
)

// RunIDHeader carries the id the server logged the run under.
const RunIDHeader = "X-Run-ID"

// Benchmarker is satisfied by *runner.Runner.
type Benchmarker interface {
	Run(ctx context.Context, kind runner.Kind, spans []int, query runner.QueryFunc) ([]results.Sample, error)
}

type Server struct {
	bench   Benchmarker
	spans   config.Spans
	queries map[string]runner.QueryFunc
	logger  logrus.FieldLogger

	// Runs share one backend and must not overlap.
	mu sync.Mutex
}

type message struct {
	Message string `json:"message"`
}

func New(bench Benchmarker, spans config.Spans, queries map[string]runner.QueryFunc, logger logrus.FieldLogger) *Server {
	return &Server{bench: bench, spans: spans, queries: queries, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.health)
	mux.HandleFunc("GET /insert", s.kindHandler(runner.KindInsert, s.spans.Insert))
	mux.HandleFunc("GET /delete", s.kindHandler(runner.KindDelete, s.spans.Delete))
	mux.HandleFunc("GET /update", s.kindHandler(runner.KindUpdate, s.spans.Update))
	mux.HandleFunc("GET /query", s.queryHandler)
	mux.HandleFunc("GET /query/{name}", s.queryHandler)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, message{Message: "All good!"})
}

func (s *Server) kindHandler(kind runner.Kind, spans []int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.run(w, r, kind, string(kind), spans, nil)
	}
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		name = "all"
	}
	query, ok := s.queries[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, message{Message: "unknown query " + name})
		return
	}
	s.run(w, r, runner.KindQuery, "query/"+name, s.spans.Query, query)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, kind runner.Kind, endpoint string, spans []int, query runner.QueryFunc) {
	if !s.mu.TryLock() {
		writeJSON(w, http.StatusConflict, message{Message: "a benchmark run is already in progress"})
		return
	}
	defer s.mu.Unlock()

	runID := uuid.New().String()
	logger := s.logger.WithFields(logrus.Fields{"run_id": runID, "endpoint": endpoint})
	w.Header().Set(RunIDHeader, runID)

	logger.Info("benchmark run started")
	samples, err := s.bench.Run(r.Context(), kind, spans, query)
	if err != nil {
		logger.WithError(err).Error("benchmark run failed")
		writeJSON(w, http.StatusInternalServerError, message{Message: "Something went wrong: " + err.Error()})
		return
	}
	logger.WithField("samples", len(samples)).Info("benchmark run finished")
	writeJSON(w, http.StatusOK, samples)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // client gone
}
