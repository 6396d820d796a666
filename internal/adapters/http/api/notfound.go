package api

import "net/http"

var availableEndpoints = []string{
	"POST /api/score",
	"GET /api/leaderboard?limit=N",
	"GET /api/top10",
	"GET /api/rank/{username}",
	"GET /api/subjects/{class}",
	"POST /api/subject-progress",
	"POST /api/register",
	"POST /api/login",
	"GET /api/user/{id}",
	"GET /api/search?q=",
	"GET /api/health",
	"GET /api/db-check",
}

type notFoundResponse struct {
	Success   bool     `json:"success"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Path      string   `json:"path"`
	Method    string   `json:"method"`
	Endpoints []string `json:"available_endpoints"`
}

func handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, notFoundResponse{
		Code:      "not_found",
		Message:   "API endpoint not found",
		Path:      r.URL.Path,
		Method:    r.Method,
		Endpoints: availableEndpoints,
	})
}
