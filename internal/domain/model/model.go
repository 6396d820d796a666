// Package model contains domain models passed between layers.
package model

import "strings"

// Submission is a score submission for one participant.
type Submission struct {
	Username    string `json:"username" validate:"required,max=64,notblank"`
	DisplayName string `json:"name" validate:"required,max=128,notblank"`
	Score       *int64 `json:"score" validate:"required,min=0"`
}

// Normalize trims surrounding whitespace from identifiers.
func (s *Submission) Normalize() {
	s.Username = strings.TrimSpace(s.Username)
	s.DisplayName = strings.TrimSpace(s.DisplayName)
}

// Registration is the payload of POST /api/register.
type Registration struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	FullName    string `json:"fullName" validate:"required,max=128,notblank"`
	ClassNumber int    `json:"classNumber" validate:"required,min=1,max=11"`
	Username    string `json:"username" validate:"omitempty,max=64,username"`
}

// DerivedUsername returns the explicit username or the lowercased local part
// of the email with characters outside the username alphabet replaced by '_'.
func (r Registration) DerivedUsername() string {
	if u := strings.TrimSpace(r.Username); u != "" {
		return u
	}
	local, _, _ := strings.Cut(strings.TrimSpace(r.Email), "@")
	return strings.Map(func(c rune) rune {
		if isUsernameRune(c) {
			return c
		}
		return '_'
	}, strings.ToLower(local))
}

// Credentials is the payload of POST /api/login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SubjectProgress is the payload of POST /api/subject-progress.
type SubjectProgress struct {
	Name     string `json:"name" validate:"required,max=64,notblank"`
	Class    int    `json:"class" validate:"required,min=1,max=11"`
	Progress *int   `json:"progress" validate:"required,min=0,max=100"`
}
