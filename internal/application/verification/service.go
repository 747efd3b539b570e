package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lumos-api/internal/application/dispatch"
	"github.com/lumos-api/internal/domain"
	"github.com/lumos-api/internal/pkg/metrics"
)

// Params is a pending sign-in: the emailed URL already embeds Token.
type Params struct {
	Identifier string
	URL        string
	Provider   string
	Token      string
}

// Strategy pairs the email layout with the backend that delivers it.
// It is chosen once at startup.
type Strategy struct {
	Composer Composer
	Backend  dispatch.Backend
}

type Service interface {
	SendVerificationRequest(ctx context.Context, p Params) error
}

type userDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type service struct {
	users    userDirectory
	strategy Strategy
	metrics  metrics.Recorder
}

type ServiceDeps struct {
	UserRepo userDirectory
	Strategy Strategy
	Metrics  metrics.Recorder
}

func NewService(deps ServiceDeps) Service {
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &service{users: deps.UserRepo, strategy: deps.Strategy, metrics: rec}
}

// SendVerificationRequest emails the sign-in link. An unknown identifier is a
// new user, not an error.
func (s *service) SendVerificationRequest(ctx context.Context, p Params) error {
	user, err := s.users.FindByEmail(ctx, p.Identifier)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}
		user = nil
	}

	req, err := s.strategy.Composer.Compose(p, user)
	if err != nil {
		return err
	}

	backend := s.strategy.Backend.Name()
	res, err := s.strategy.Backend.Send(ctx, req)
	if err != nil {
		s.metrics.RecordDispatch(backend, req.Template, metrics.OutcomeError)
		slog.Error("verification email not sent", "email", p.Identifier, "backend", backend, "err", err)
		var de *domain.DispatchError
		if errors.As(err, &de) || errors.Is(err, domain.ErrConfiguration) {
			return err
		}
		return &domain.DispatchError{Backend: backend, Err: err}
	}
	if res.Failed() {
		s.metrics.RecordDispatch(backend, req.Template, metrics.OutcomeFailed)
		slog.Error("verification email rejected", "email", p.Identifier, "backend", backend,
			"code", res.ErrorCode, "message", res.Message)
		return &domain.DispatchError{Backend: backend, Code: res.ErrorCode, Message: res.Message}
	}

	s.metrics.RecordDispatch(backend, req.Template, metrics.OutcomeSent)
	slog.Info("verification email sent", "email", p.Identifier, "backend", backend, "message_id", res.MessageID)
	return nil
}
