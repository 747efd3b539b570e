package s3infra

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func TestRead_ReturnsBody(t *testing.T) {
	api := &mockAPI{}
	api.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Bucket) == "assets" && aws.ToString(in.Key) == "email.templates/welcome.html"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("<h1>hi</h1>"))}, nil)

	b, err := NewStore(api, "assets").Read(context.Background(), "email.templates/welcome.html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>hi</h1>", string(b))
}

func TestRead_Error(t *testing.T) {
	api := &mockAPI{}
	api.On("GetObject", mock.Anything, mock.Anything).Return(nil, errors.New("NoSuchKey"))

	_, err := NewStore(api, "assets").Read(context.Background(), "missing")
	assert.ErrorContains(t, err, "NoSuchKey")
}
