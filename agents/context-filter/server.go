package contextfilter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"context-stack/internal/models"
	"context-stack/shared/monitoring"

	"github.com/google/uuid"
)

const maxHookBodyBytes = 10 << 20

// HookRequest is the payload the orchestration host posts to a filter hook
type HookRequest struct {
	Body *models.ConversationBody `json:"body"`
	User *models.UserInfo         `json:"user"`
}

// Server exposes the inlet/outlet hooks and health endpoints over HTTP
type Server struct {
	provider *ContextProvider
	mux      *http.ServeMux
	port     int
}

func NewServer(provider *ContextProvider, monitor *monitoring.Monitor, port int) *Server {
	s := &Server{
		provider: provider,
		mux:      http.NewServeMux(),
		port:     port,
	}
	s.mux.HandleFunc("/filter/inlet", s.handleInlet)
	s.mux.HandleFunc("/filter/outlet", s.handleOutlet)
	monitoring.NewHealthHandlers(monitor).Register(s.mux)
	return s
}

func (s *Server) Handler() http.Handler {
	return withRequestID(s.mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Filter server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("filter server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down filter server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("filter server shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleInlet(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeHookRequest(w, r)
	if !ok {
		return
	}

	body, err := s.provider.OnRequest(r.Context(), req.Body, req.User)
	if err != nil {
		log.Printf("[%s] inlet failed: %v", requestID(r), err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, body)
}

func (s *Server) handleOutlet(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeHookRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, r, s.provider.OnResponse(r.Context(), req.Body, req.User))
}

func decodeHookRequest(w http.ResponseWriter, r *http.Request) (*HookRequest, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	var req HookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHookBodyBytes)).Decode(&req); err != nil {
		log.Printf("[%s] invalid hook request: %v", requestID(r), err)
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return nil, false
	}
	if req.Body == nil {
		http.Error(w, "missing body", http.StatusBadRequest)
		return nil, false
	}

	return &req, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[%s] Warning: failed to write response: %v", requestID(r), err)
	}
}

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}
