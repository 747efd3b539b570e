package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumos-api/internal/domain"
)

// Service turns session tokens into sessions. The token step runs on every
// token refresh, the session step on every session read.
type Service interface {
	Token(ctx context.Context, tok domain.Token, user *domain.User) (domain.Token, error)
	Session(tok *domain.Token, s domain.Session) domain.Session
}

type userDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type service struct {
	users userDirectory
}

type ServiceDeps struct {
	UserRepo userDirectory
}

func NewService(deps ServiceDeps) Service {
	return &service{users: deps.UserRepo}
}

// Token re-reads the directory by the token email so profile edits show up
// without signing in again. On a miss the incoming token is kept and only its
// id is taken from user, when user is given and has one.
func (s *service) Token(ctx context.Context, tok domain.Token, user *domain.User) (domain.Token, error) {
	dbUser, err := s.users.FindByEmail(ctx, tok.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return tok, fmt.Errorf("refresh token: %w", err)
		}
		if user != nil && user.UserID != "" {
			tok.ID = user.UserID
		}
		return tok, nil
	}
	return domain.Token{
		ID:      dbUser.UserID,
		Name:    dbUser.Name,
		Email:   dbUser.Email,
		Picture: dbUser.Image,
	}, nil
}

// Session copies the token identity onto s. Without a token s is returned as is.
func (s *service) Session(tok *domain.Token, sess domain.Session) domain.Session {
	if tok == nil {
		return sess
	}
	sess.User = &domain.SessionUser{
		ID:    tok.ID,
		Name:  tok.Name,
		Email: tok.Email,
		Image: tok.Picture,
	}
	return sess
}
