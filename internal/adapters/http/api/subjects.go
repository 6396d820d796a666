package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/scool/internal/domain/model"
	"github.com/okian/scool/internal/domain/types"
)

// SubjectDependencies defines subject progress operations.
type SubjectDependencies interface {
	Subjects(ctx context.Context, class int) ([]types.Subject, error)
	SaveSubjectProgress(ctx context.Context, name string, class, progress int) (types.Subject, error)
}

// SubjectsHandler handles subject listing and progress updates.
type SubjectsHandler struct {
	deps SubjectDependencies
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(deps SubjectDependencies) *SubjectsHandler {
	return &SubjectsHandler{deps: deps}
}

// HandleGetSubjects handles GET /api/subjects/{class}.
func (h *SubjectsHandler) HandleGetSubjects(w http.ResponseWriter, r *http.Request) {
	class, err := strconv.Atoi(r.PathValue("class"))
	if err != nil || class < 1 || class > 11 {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: class must be an integer between 1 and 11", ErrBadRequest))
		return
	}
	subjects, err := h.deps.Subjects(r.Context(), class)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

type progressResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Subject types.Subject `json:"subject"`
}

// HandlePostProgress handles POST /api/subject-progress.
func (h *SubjectsHandler) HandlePostProgress(w http.ResponseWriter, r *http.Request) {
	var req model.SubjectProgress
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := model.Validate(req); err != nil {
		writeFailure(w, err)
		return
	}
	s, err := h.deps.SaveSubjectProgress(r.Context(), req.Name, req.Class, *req.Progress)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{Success: true, Message: "Progress updated", Subject: s})
}
