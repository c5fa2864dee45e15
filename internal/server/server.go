// Package server exposes the voice pipeline over HTTP: it parses the
// multipart request, sequences the transcription, chat, and synthesis
// stages, and streams the synthesized audio back to the caller.
package server

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tiger/voice-gateway/internal/logging"
	"github.com/tiger/voice-gateway/internal/runtime/provider/registry"
)

type Server struct {
	catalog registry.Catalog
	log     *zap.SugaredLogger
}

func New(catalog registry.Catalog) *Server {
	return &Server{catalog: catalog, log: logging.Sugar()}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/speech", s.handleSpeech)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requestID honors a caller-supplied correlation id and mints one otherwise.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
