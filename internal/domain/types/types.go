// Package types contains common types used across the application
package types

import "time"

// ProvisionalRank is written during an upsert and replaced by the recompute pass
// before the transaction commits.
const ProvisionalRank = 999

// Entry represents a leaderboard entry
type Entry struct {
	Username  string    `json:"username" db:"username"`
	Name      string    `json:"name" db:"name"`
	Score     int64     `json:"score" db:"score"`
	Rank      int       `json:"rank" db:"rank"`
	UpdatedAt time.Time `json:"-" db:"-"`
}

// Subject is a per-class subject with a completion percentage.
type Subject struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Class    int    `json:"class" db:"class"`
	Progress int    `json:"progress" db:"progress"`
}

// User is a registered student.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"fullName" db:"full_name"`
	Class        int       `json:"classNumber" db:"class"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"-"`
}

// SearchResult is one hit returned by /api/search.
type SearchResult struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Data        any    `json:"data"`
}

// Counts reports row counts per table.
type Counts struct {
	Leaderboard int `json:"leaderboard"`
	Subjects    int `json:"subjects"`
	Users       int `json:"users"`
}

// Health is the body of GET /health.
type Health struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Backend   string    `json:"backend"`
	Timestamp time.Time `json:"timestamp"`
	// Uptime in seconds.
	Uptime float64 `json:"uptime"`
}
