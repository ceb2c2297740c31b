package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/converge-access/converge/server/internal/converge/service"
	"github.com/converge-access/converge/server/internal/converge/types"
)

type Dependencies struct {
	Logger           *log.Logger
	Addr             string
	DecisionService  *service.DecisionService
	TokenService     *service.TokenService
	HeartbeatService *service.HeartbeatService
}

type Server struct {
	httpServer       *http.Server
	logger           *log.Logger
	mux              *http.ServeMux
	decisionService  *service.DecisionService
	tokenService     *service.TokenService
	heartbeatService *service.HeartbeatService
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:           d.Logger,
		mux:              mux,
		decisionService:  d.DecisionService,
		tokenService:     d.TokenService,
		heartbeatService: d.HeartbeatService,
	}

	mux.HandleFunc("POST /v1/decide", s.handleDecide)
	mux.HandleFunc("POST /v1/capabilities", s.handleIssueCapability)
	mux.HandleFunc("GET /v1/public-key", s.handlePublicKey)
	mux.HandleFunc("POST /v1/heartbeat", s.handleHeartbeat)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req types.DecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.decisionService.Decide(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPrincipalID):
			writeError(w, http.StatusBadRequest, "invalid_principal_id", err.Error())
		case errors.Is(err, service.ErrInvalidResourceID):
			writeError(w, http.StatusBadRequest, "invalid_resource_id", err.Error())
		default:
			s.logger.Printf("decide error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIssueCapability(w http.ResponseWriter, r *http.Request) {
	var req types.IssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.tokenService.Issue(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSubject),
			errors.Is(err, service.ErrInvalidAudience),
			errors.Is(err, service.ErrInvalidResource),
			errors.Is(err, service.ErrInvalidAction):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.logger.Printf("capability issue error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.PublicKeyResponse{
		PublicKey: s.tokenService.PublicKey(),
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.heartbeatService.Record(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidControllerID) {
			writeError(w, http.StatusBadRequest, "invalid_controller_id", err.Error())
			return
		}
		s.logger.Printf("heartbeat error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeJSON decodes the request body into dst, rejecting unknown
// fields and oversized bodies. It writes the error response itself and
// reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}
