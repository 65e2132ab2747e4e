package acsserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/devices"
	"github.com/magma/magma-sub003/pkg/tr069"
)

// maxBodySize bounds a single CWMP message
const maxBodySize = 1 << 20

// Handler is the session side of the ACS
type Handler interface {
	Handle(clientAddr string, msg tr069.Message) (tr069.Message, error)
}

// Server is the HTTP endpoint eNodeBs post CWMP messages to
type Server struct {
	handler Handler
	codec   tr069.Codec
	router  chi.Router
	server  *http.Server
}

// NewServer creates the endpoint serving path
func NewServer(handler Handler, codec tr069.Codec, path string) *Server {
	s := &Server{
		handler: handler,
		codec:   codec,
		router:  chi.NewRouter(),
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Post(path, s.HandleCWMP)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting TR-069 server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HandleCWMP decodes one posted message, runs it through the session
// and writes the reply. An empty reply ends the HTTP session with 204.
func (s *Server) HandleCWMP(w http.ResponseWriter, r *http.Request) {
	addr := clientAddr(r)

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	msg, err := s.codec.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("clientAddr", addr).Msg("Failed to decode CWMP message")
		http.Error(w, "malformed message", http.StatusBadRequest)
		return
	}

	out, err := s.handler.Handle(addr, msg)
	if err != nil {
		s.handleError(w, addr, msg, err)
		return
	}

	body, err := s.codec.Encode(out)
	if err != nil {
		log.Error().Err(err).Str("clientAddr", addr).Msg("Failed to encode CWMP message")
		http.Error(w, "encode reply", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", s.codec.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleError(w http.ResponseWriter, addr string, msg tr069.Message, err error) {
	logger := log.With().Str("clientAddr", addr).Str("message", msg.MessageName()).Logger()

	switch {
	case errors.Is(err, devices.ErrUnsupportedDevice):
		logger.Warn().Err(err).Msg("Rejected unsupported device")
		http.Error(w, "unsupported device", http.StatusForbidden)
	case errors.Is(err, acs.ErrNoSession):
		// a device that skipped its Inform is told to start over
		logger.Warn().Err(err).Msg("Message outside of a session")
		w.WriteHeader(http.StatusNoContent)
	default:
		logger.Error().Err(err).Msg("Failed to handle CWMP message")
		http.Error(w, "session error", http.StatusInternalServerError)
	}
}

// clientAddr keys sessions by host only; devices reconnect from new ports
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
