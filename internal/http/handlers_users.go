package http

import (
	"net/http"

	"finplan/internal/core"

	"github.com/google/uuid"
)

type createUserRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_user", err)
		return
	}
	u, err := s.users.CreateUser(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, "create_user", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/users/"+u.ID.String()).
		Body(u).Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, "list_users", err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	NewJSONResponse().Body(users).Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userID")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	u, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, "get_user", err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userID")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, "delete_user", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// requireUser resolves the {userID} path value to an existing user. It writes
// the error response itself and reports false when the caller should stop.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request, op string) (uuid.UUID, bool) {
	id, ok := pathID(r, "userID")
	if !ok {
		NotFoundError("not found").Write(w)
		return uuid.Nil, false
	}
	if _, err := s.users.GetUser(r.Context(), id); err != nil {
		writeError(w, r, op, err)
		return uuid.Nil, false
	}
	return id, true
}
