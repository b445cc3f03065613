package auth

import (
	"net/http"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	"github.com/NordCoder/Gatehouse/internal/httpx"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"go.uber.org/zap"
)

// Server exposes the login flow under /api/auth.
type Server struct {
	uc      *Usecase
	log     *zap.Logger
	maxBody int64
}

func NewServer(uc *Usecase, log *zap.Logger, maxBody int64) *Server {
	return &Server{uc: uc, log: log, maxBody: maxBody}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/refresh", s.refresh)
	mux.Handle("POST /api/auth/logout", RequireAuthenticated(s.log, http.HandlerFunc(s.logout)))
	mux.Handle("GET /api/auth/me", RequireAuthenticated(s.log, http.HandlerFunc(s.me)))
	mux.Handle("POST /api/auth/password", RequireAuthenticated(s.log, http.HandlerFunc(s.changePassword)))
}

func clientInfo(r *http.Request) ClientInfo {
	return ClientInfo{IP: obs.ClientIP(r), UserAgent: r.UserAgent()}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(w, r, s.maxBody, &in); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	res, err := s.uc.Register(r.Context(), in, clientInfo(r))
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(w, r, s.maxBody, &in); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	res, err := s.uc.Login(r.Context(), in, clientInfo(r))
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := httpx.DecodeJSON(w, r, s.maxBody, &in); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	res, err := s.uc.Refresh(r.Context(), in.RefreshToken, clientInfo(r))
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Logout(r.Context(), authcore.IdentityFromContext(r.Context()), clientInfo(r)); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p, err := s.uc.Me(r.Context(), authcore.IdentityFromContext(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var in ChangePasswordInput
	if err := httpx.DecodeJSON(w, r, s.maxBody, &in); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	if err := s.uc.ChangePassword(r.Context(), authcore.IdentityFromContext(r.Context()), in, clientInfo(r)); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
