// Package loadtest drives concurrent score submissions against a running
// server and checks the resulting standings.
package loadtest

import (
	"runtime"
	"time"
)

// Defaults for Config.
const (
	DefaultBaseURL     = "http://localhost:3000"
	DefaultTimeout     = 10 * time.Second
	DefaultSubmissions = 1000
	DefaultMaxScore    = 10000
	DefaultVerifyLimit = 100
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Submissions  int           // Number of submissions to send
	Participants int           // Distinct usernames; resubmissions overwrite
	Concurrency  int           // Concurrent in-flight requests
	Timeout      time.Duration // Per-request timeout
	MaxScore     int64         // Scores are drawn from [0, MaxScore]
	Prefix       string        // Username prefix, defaults to a fresh uuid
	VerifyLimit  int           // Standings page fetched for verification
}

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Submissions <= 0 {
		c.Submissions = DefaultSubmissions
	}
	if c.Participants <= 0 || c.Participants > c.Submissions {
		c.Participants = c.Submissions
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxScore <= 0 {
		c.MaxScore = DefaultMaxScore
	}
	if c.VerifyLimit <= 0 {
		c.VerifyLimit = DefaultVerifyLimit
	}
}

// Stats summarises a load run.
type Stats struct {
	Submitted   int
	Succeeded   int
	RateLimited int
	Unavailable int
	Failed      int
	Duration    time.Duration
}

// PerSecond is the submission throughput.
func (s Stats) PerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Submitted) / s.Duration.Seconds()
}
