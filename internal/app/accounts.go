package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/scool/internal/adapters/repository"
	"github.com/okian/scool/internal/domain/model"
	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/logger"
)

// Subjects lists the class's subjects. A class without rows gets the default
// zero-progress list.
func (s *Service) Subjects(ctx context.Context, class int) ([]types.Subject, error) {
	_, b, err := s.components()
	if err != nil || b == nil {
		return nil, unavailable(err)
	}
	subjects, err := b.Catalog.Subjects(ctx, class)
	if err != nil || len(subjects) > 0 {
		return subjects, err
	}
	if err := b.Catalog.EnsureSubjects(ctx, class, repository.DefaultSubjects); err != nil {
		return nil, err
	}
	return b.Catalog.Subjects(ctx, class)
}

// SaveSubjectProgress upserts progress for (name, class).
func (s *Service) SaveSubjectProgress(ctx context.Context, name string, class, progress int) (types.Subject, error) {
	_, b, err := s.components()
	if err != nil || b == nil {
		return types.Subject{}, unavailable(err)
	}
	return b.Catalog.UpsertSubject(ctx, strings.TrimSpace(name), class, progress)
}

// Register creates the account, then enrolls the student on the leaderboard
// and creates the class's default subjects. Neither follow-up can fail the
// registration.
func (s *Service) Register(ctx context.Context, reg model.Registration) (types.User, error) {
	r, b, err := s.components()
	if err != nil || b == nil {
		return types.User{}, unavailable(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.passwordCost())
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := b.Catalog.CreateUser(ctx, types.User{
		Username:     reg.DerivedUsername(),
		Email:        strings.TrimSpace(reg.Email),
		FullName:     strings.TrimSpace(reg.FullName),
		Class:        reg.ClassNumber,
		PasswordHash: string(hash),
	})
	if err != nil {
		return types.User{}, err
	}

	if _, err := r.Enroll(ctx, u.Username, u.FullName); err != nil {
		s.logger.Warn(ctx, "user not added to leaderboard",
			logger.String("username", u.Username), logger.Error(err))
	}
	if err := b.Catalog.EnsureSubjects(ctx, u.Class, repository.DefaultSubjects); err != nil {
		s.logger.Warn(ctx, "default subjects not created",
			logger.Int("class", u.Class), logger.Error(err))
	}
	return u, nil
}

// Login checks the password and issues a session token.
func (s *Service) Login(ctx context.Context, creds model.Credentials) (types.User, string, error) {
	_, b, err := s.components()
	if err != nil || b == nil {
		return types.User{}, "", unavailable(err)
	}

	u, err := b.Catalog.UserByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, types.ErrNotFound) {
		return types.User{}, "", types.ErrUnauthorized
	}
	if err != nil {
		return types.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return types.User{}, "", types.ErrUnauthorized
	}
	return u, uuid.NewString(), nil
}

// User returns the public profile for id.
func (s *Service) User(ctx context.Context, id int64) (types.User, error) {
	_, b, err := s.components()
	if err != nil || b == nil {
		return types.User{}, unavailable(err)
	}
	return b.Catalog.UserByID(ctx, id)
}

func (s *Service) passwordCost() int {
	if s.cfg == nil || s.cfg.PasswordCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.cfg.PasswordCost
}
