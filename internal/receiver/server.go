// Package receiver is a development stand-in for the inventory backend. It
// accepts the records the capture terminal submits and keeps them for
// inspection.
package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Iron-Ham/invscan/internal/errors"
	"github.com/Iron-Ham/invscan/internal/logging"
	"github.com/Iron-Ham/invscan/internal/submit"
)

const (
	// DefaultPath is the submission route.
	DefaultPath = "/submit-form"

	// MessageAccepted is returned with every accepted record.
	MessageAccepted = "Inventory tracked"

	// ReplayedHeader marks a response served from an earlier request with
	// the same idempotency key.
	ReplayedHeader = "Idempotent-Replayed"

	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Server routes submissions into a Store.
type Server struct {
	router *mux.Router
	store  *Store
	logger *logging.Logger
	path   string

	now   func() time.Time
	newID func() string
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithIDs overrides record ID generation.
func WithIDs(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// NewServer creates a Server that accepts POSTs on path.
func NewServer(store *Store, path string, logger *logging.Logger, opts ...Option) *Server {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		logger: logger.WithComponent("receiver"),
		path:   path,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/submissions", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc(path, s.handleSubmit).Methods(http.MethodPost)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("receiver listening", "addr", ln.Addr().String(), "path", s.path)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down receiver: %w", err)
	}
	s.logger.Info("receiver stopped")
	return nil
}

// receipt is the success body.
type receipt struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// problem is the error body.
type problem struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var rec submit.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, problem{Error: "request body must be a JSON object"})
		return
	}

	rec = submit.NewRecord(rec.EmploymentID, rec.ScannedResult, rec.Quantity)
	if err := rec.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, validationProblem(err))
		return
	}

	sub := Submission{
		ID:             s.newID(),
		ScannedResult:  rec.ScannedResult,
		EmploymentID:   rec.EmploymentID,
		Quantity:       rec.Quantity,
		IdempotencyKey: r.Header.Get(submit.IdempotencyHeader),
		ReceivedAt:     s.now().UTC(),
	}

	stored, replayed, err := s.store.Add(r.Context(), sub)
	if err != nil {
		s.logger.Error("failed to store submission", "error", err)
		writeJSON(w, http.StatusInternalServerError, problem{Error: "could not store submission"})
		return
	}

	if replayed {
		w.Header().Set(ReplayedHeader, "true")
		s.logger.Info("replayed submission", "id", stored.ID, "idempotency_key", stored.IdempotencyKey)
	} else {
		s.logger.Info("accepted submission",
			"id", stored.ID,
			"employment_id", stored.EmploymentID,
			"scanned_result", stored.ScannedResult,
			"quantity", stored.Quantity,
		)
	}
	writeJSON(w, http.StatusCreated, receipt{ID: stored.ID, Message: MessageAccepted})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "OK")
}

func validationProblem(err error) problem {
	p := problem{Error: "invalid submission"}
	var verrs errors.ValidationErrors
	if errors.As(err, &verrs) {
		p.Fields = make(map[string]string, len(verrs))
		for _, ve := range verrs {
			p.Fields[ve.Field] = ve.Message()
		}
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", s.now().Sub(start).Milliseconds(),
		)
	})
}
