package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumos-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserDirectory struct{ mock.Mock }

func (m *mockUserDirectory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func newService(users *mockUserDirectory) Service {
	return NewService(ServiceDeps{UserRepo: users})
}

func TestToken_DirectoryHit_ReplacesClaims(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("FindByEmail", mock.Anything, "a@b.com").
		Return(&domain.User{UserID: "u1", Name: "New Name", Email: "a@b.com", Image: "https://img/new.png"}, nil)

	got, err := newService(users).Token(context.Background(), domain.Token{Email: "a@b.com", Name: "Old"}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.Token{ID: "u1", Name: "New Name", Email: "a@b.com", Picture: "https://img/new.png"}, got)
}

func TestToken_Idempotent(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("FindByEmail", mock.Anything, "a@b.com").
		Return(&domain.User{UserID: "u1", Name: "Ada", Email: "a@b.com"}, nil)
	svc := newService(users)
	in := domain.Token{ID: "u1", Email: "a@b.com"}

	first, err := svc.Token(context.Background(), in, nil)
	require.NoError(t, err)
	second, err := svc.Token(context.Background(), first, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	users.AssertNumberOfCalls(t, "FindByEmail", 2)
}

func TestToken_Miss_KeepsExistingID(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("FindByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	in := domain.Token{ID: "u1", Name: "Ada", Email: "a@b.com"}
	svc := newService(users)

	got, err := svc.Token(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	got, err = svc.Token(context.Background(), in, &domain.User{})
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func TestToken_Miss_TakesFreshUserID(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("FindByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)

	got, err := newService(users).Token(context.Background(), domain.Token{Email: "a@b.com"}, &domain.User{UserID: "u9"})

	require.NoError(t, err)
	assert.Equal(t, domain.Token{ID: "u9", Email: "a@b.com"}, got)
}

func TestToken_DirectoryError_ReturnsIncoming(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("FindByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("throttled"))
	in := domain.Token{ID: "u1", Email: "a@b.com"}

	got, err := newService(users).Token(context.Background(), in, nil)

	assert.ErrorContains(t, err, "throttled")
	assert.Equal(t, in, got)
}

func TestSession_ProjectsToken(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	tok := &domain.Token{ID: "u1", Name: "Ada", Email: "a@b.com", Picture: "https://img/ada.png"}

	got := newService(nil).Session(tok, domain.Session{Expires: exp})

	require.NotNil(t, got.User)
	assert.Equal(t, domain.SessionUser{ID: "u1", Name: "Ada", Email: "a@b.com", Image: "https://img/ada.png"}, *got.User)
	assert.Equal(t, exp, got.Expires)
}

func TestSession_NoToken_Unchanged(t *testing.T) {
	in := domain.Session{Expires: time.Now()}

	assert.Equal(t, in, newService(nil).Session(nil, in))
}
