package api

import (
	"context"
	"net/http"

	"github.com/okian/scool/internal/domain/model"
	"github.com/okian/scool/pkg/logger"
)

// ScoreDependencies defines the submission operation.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, username, name string, score int64) (Entry, error)
}

// ScoreHandler handles score submissions.
type ScoreHandler struct {
	deps ScoreDependencies
	log  logger.Logger
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies, log logger.Logger) *ScoreHandler {
	return &ScoreHandler{deps: deps, log: log}
}

type scoreResponse struct {
	Success bool  `json:"success"`
	Rank    int   `json:"rank"`
	Score   int64 `json:"score"`
}

// HandlePostScore handles POST /api/score.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	var req model.Submission
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	req.Normalize()
	if err := model.Validate(req); err != nil {
		writeFailure(w, err)
		return
	}

	entry, err := h.deps.SubmitScore(r.Context(), req.Username, req.DisplayName, *req.Score)
	if err != nil {
		status, _ := classify(err)
		if status >= http.StatusInternalServerError {
			h.log.Error(r.Context(), "score submission failed",
				logger.String("username", req.Username),
				logger.Int("status", status),
				logger.Error(err),
			)
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Success: true, Rank: entry.Rank, Score: entry.Score})
}
