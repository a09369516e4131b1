// Package users manages the user directory: the names, emails and roles of
// the people the identity proxy lets in.
package users

import (
	"context"
	"errors"
	"strings"

	"botdash/internal/app/instances"
	"botdash/internal/store"
)

type Repository interface {
	ListUsers(ctx context.Context) ([]store.User, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	CreateUser(ctx context.Context, id, name, email, role string) (*store.User, error)
	UpdateUser(ctx context.Context, id string, patch store.UserPatch) (*store.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Users(ctx context.Context) ([]store.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*store.User, error) {
	name := strings.TrimSpace(req.Name)
	email, ok := normalizeEmail(req.Email)
	if name == "" || !ok {
		return nil, ErrInvalidRequest
	}
	role := instances.RoleUser
	if req.Role != "" {
		if role, ok = normalizeRole(req.Role); !ok {
			return nil, ErrInvalidRequest
		}
	}
	u, err := s.repo.CreateUser(ctx, strings.TrimSpace(req.ID), name, email, role)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrUserExists
	}
	return u, err
}

// Update changes the given fields. Changing the role takes effect on the
// user's next request.
func (s *Service) Update(ctx context.Context, id string, req UpdateUserRequest) (*store.User, error) {
	var patch store.UserPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalidRequest
		}
		patch.Name = &name
	}
	if req.Email != nil {
		email, ok := normalizeEmail(*req.Email)
		if !ok {
			return nil, ErrInvalidRequest
		}
		patch.Email = &email
	}
	if req.Role != nil {
		role, ok := normalizeRole(*req.Role)
		if !ok {
			return nil, ErrInvalidRequest
		}
		patch.Role = &role
	}
	if patch.Name == nil && patch.Email == nil && patch.Role == nil {
		return nil, ErrInvalidRequest
	}
	u, err := s.repo.UpdateUser(ctx, id, patch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, store.ErrDuplicate):
		return nil, ErrEmailTaken
	}
	return u, err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// RoleOf returns the stored role of userID, or ErrUserNotFound when the user
// has no directory entry.
func (s *Service) RoleOf(ctx context.Context, userID string) (string, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func normalizeRole(role string) (string, bool) {
	role = strings.ToLower(strings.TrimSpace(role))
	return role, role == instances.RoleAdmin || role == instances.RoleUser
}

func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	return email, at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
