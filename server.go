package traceback

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server exposes the pipeline over HTTP so editor integrations can trigger a
// reconstruction and fetch the resulting entry list. Each request runs the
// full pipeline against the current log snapshot; nothing is cached.
type Server struct {
	tracer *Tracer
	server *http.Server
	logger *zap.Logger
}

// NewServer returns a Server bound to addr, serving traces produced by tracer.
// When addr is empty, the tracer's configured HTTPListenAddr is used.
func NewServer(tracer *Tracer, addr string, logger *zap.Logger) *Server {
	if addr == "" {
		addr = tracer.Config.HTTPListenAddr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{tracer: tracer, logger: logger}

	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Get("/trace", s.handleTrace)
	r.Get("/healthz", s.handleHealth)

	s.server = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start serves until Close is called.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Close() error {
	return s.server.Close()
}

// Handler returns the server's HTTP handler. This method is intended for
// testing purposes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With(zap.String("request_id", uuid.NewString()))
		logger.Info("request started",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
		logger.Info("request finished", zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// captureSink holds the entry list produced by a single request's pipeline
// invocation so the handler can render it.
type captureSink struct {
	list EntryList
}

func (c *captureSink) Display(list EntryList) error {
	c.list = list
	return nil
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	distance := 0
	if v := r.URL.Query().Get("distance"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 {
			writeJSONMessage(w, http.StatusBadRequest, "distance must be a positive integer")
			return
		}
		distance = d
	}

	capture := &captureSink{}
	tracer := *s.tracer
	tracer.Sink = capture

	err := tracer.Trace(distance)
	switch {
	case errors.Is(err, ErrNoTrace):
		writeJSONMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnparseable):
		writeJSONMessage(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.logger.Error("trace reconstruction failed", zap.Error(err))
		writeJSONMessage(w, http.StatusInternalServerError, "trace reconstruction failed")
	default:
		s.writeTrace(w, r, capture.list)
	}
}

func (s *Server) writeTrace(w http.ResponseWriter, r *http.Request, list EntryList) {
	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := (WriterSink{W: w}).Display(list); err != nil {
			s.logger.Error("error writing plain text payload to response", zap.Error(err))
		}
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		s.logger.Error("error encoding JSON payload to response", zap.Error(err))
	}
}

func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
