package user

import (
	"context"
	"fmt"

	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/validate"
)

// UpdateProfileRequest is a partial profile update; nil fields keep their value.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=64"`
	Image *string `json:"image" validate:"omitempty,url"`
}

type Service interface {
	Me(ctx context.Context, sess *domain.Session) (*domain.User, error)
	UpdateProfile(ctx context.Context, sess *domain.Session, req UpdateProfileRequest) (*domain.User, error)
}

type userStore interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID, name, image string) error
}

type service struct {
	repo userStore
}

type ServiceDeps struct {
	UserRepo userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo}
}

// Me returns the directory record behind the session.
func (s *service) Me(ctx context.Context, sess *domain.Session) (*domain.User, error) {
	userID, err := sessionUserID(sess)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, sess *domain.Session, req UpdateProfileRequest) (*domain.User, error) {
	userID, err := sessionUserID(sess)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name == nil && req.Image == nil {
		return u, nil
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Image != nil {
		u.Image = *req.Image
	}
	if err := s.repo.UpdateProfile(ctx, userID, u.Name, u.Image); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// sessionUserID returns the directory id carried by sess. Sessions whose
// token never matched a directory record have no id.
func sessionUserID(sess *domain.Session) (string, error) {
	if sess == nil || sess.User == nil || sess.User.ID == "" {
		return "", domain.ErrAuthenticationRequired
	}
	return sess.User.ID, nil
}
