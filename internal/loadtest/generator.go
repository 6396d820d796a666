package loadtest

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Submission is one generated score.
type Submission struct {
	Username string
	Name     string
	Score    int64
}

// Generate builds cfg.Submissions submissions spread over cfg.Participants
// usernames. Later submissions for a username replace earlier ones.
func Generate(cfg Config) []Submission {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "lt-" + uuid.NewString()[:8]
	}
	out := make([]Submission, cfg.Submissions)
	for i := range out {
		p := i % cfg.Participants
		out[i] = Submission{
			Username: fmt.Sprintf("%s-%05d", prefix, p),
			Name:     fmt.Sprintf("Load %d", p),
			Score:    rand.Int64N(cfg.MaxScore + 1),
		}
	}
	return out
}

// ByUsername groups submitted scores per username.
func ByUsername(subs []Submission) map[string][]int64 {
	out := make(map[string][]int64, len(subs))
	for _, s := range subs {
		out[s.Username] = append(out[s.Username], s.Score)
	}
	return out
}
