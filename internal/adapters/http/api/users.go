package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/scool/internal/domain/model"
	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/logger"
)

// UserDependencies defines registration and login.
type UserDependencies interface {
	Register(ctx context.Context, reg model.Registration) (types.User, error)
	// Login returns ErrUnauthorized for unknown emails and wrong passwords.
	Login(ctx context.Context, creds model.Credentials) (types.User, string, error)
	User(ctx context.Context, id int64) (types.User, error)
}

// UsersHandler handles account endpoints.
type UsersHandler struct {
	deps UserDependencies
	log  logger.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies, log logger.Logger) *UsersHandler {
	return &UsersHandler{deps: deps, log: log}
}

type userResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	User    types.User `json:"user"`
	Token   string     `json:"token,omitempty"`
}

// HandleRegister handles POST /api/register.
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := model.Validate(req); err != nil {
		writeFailure(w, err)
		return
	}
	u, err := h.deps.Register(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.log.Info(r.Context(), "user registered", logger.String("username", u.Username), logger.Int("class", u.Class))
	writeJSON(w, http.StatusCreated, userResponse{Success: true, Message: "Registered", User: u})
}

// HandleLogin handles POST /api/login.
func (h *UsersHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := model.Validate(req); err != nil {
		writeFailure(w, err)
		return
	}
	u, token, err := h.deps.Login(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: u, Token: token})
}

// HandleGetUser handles GET /api/user/{id}.
func (h *UsersHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid user id", ErrBadRequest))
		return
	}
	u, err := h.deps.User(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
