package users

import (
	"net/http"
	"strconv"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/NordCoder/Gatehouse/internal/httpx"
	gwauth "github.com/NordCoder/Gatehouse/internal/services/api-gateway/auth"
	"go.uber.org/zap"
)

type Server struct {
	uc      *Usecase
	log     *zap.Logger
	maxBody int64
}

func NewServer(uc *Usecase, log *zap.Logger, maxBody int64) *Server {
	return &Server{uc: uc, log: log, maxBody: maxBody}
}

func (s *Server) Routes(mux *http.ServeMux) {
	protect := func(h http.HandlerFunc) http.Handler { return gwauth.RequireAuthenticated(s.log, h) }
	mux.Handle("GET /api/users", protect(s.search))
	mux.Handle("GET /api/users/{id}", protect(s.get))
	mux.Handle("PUT /api/users/{id}", protect(s.rename))
	mux.Handle("DELETE /api/users/{id}", protect(s.delete))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		// an id that cannot exist is simply not found
		return 0, user.ErrNotFound
	}
	return id, nil
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	p, err := s.uc.Get(r.Context(), authcore.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	found, err := s.uc.Search(r.Context(), authcore.IdentityFromContext(r.Context()), r.URL.Query().Get("name"))
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, found)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	var in renameRequest
	if err := httpx.DecodeJSON(w, r, s.maxBody, &in); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	p, err := s.uc.Rename(r.Context(), authcore.IdentityFromContext(r.Context()), id, in.Name)
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	if err := s.uc.Delete(r.Context(), authcore.IdentityFromContext(r.Context()), id); err != nil {
		httpx.WriteError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
