// Package user implements account registration and lookup.
package user

import (
	"context"
	"log/slog"

	domainuser "github.com/amirasaad/tradelens/pkg/domain/user"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/google/uuid"
)

// Service manages user accounts.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// New creates a user Service.
func New(uow repository.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{uow: uow, logger: logger}
}

// Register creates a new user. Duplicate usernames and emails surface as
// domain.ErrAlreadyExists from the repository.
func (s *Service) Register(ctx context.Context, username, email, password string) (*domainuser.User, error) {
	u, err := domainuser.New(username, email, password)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		return users.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID, "username", username)
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domainuser.User, error) {
	var u *domainuser.User
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err = users.Get(ctx, id)
		return err
	})
	return u, err
}
