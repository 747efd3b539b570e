package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lumos-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConsume_ReturnsDeletedItem(t *testing.T) {
	stored := &domain.VerificationToken{Identifier: "a@b.com", TokenHash: "h1", ExpiresAt: 42}
	attrs, err := attributevalue.MarshalMap(stored)
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return in.ReturnValues == types.ReturnValueAllOld
	})).Return(&dynamodb.DeleteItemOutput{Attributes: attrs}, nil)

	v, err := NewVerificationRepo(api, "verification_tokens").Consume(context.Background(), "a@b.com", "h1")
	require.NoError(t, err)
	assert.Equal(t, stored, v)
}

func TestConsume_AlreadyUsed_IsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil)

	_, err := NewVerificationRepo(api, "verification_tokens").Consume(context.Background(), "a@b.com", "h1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAccountLink_SetsProviderKey(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		pk, _ := in.Item["provider_key"].(*types.AttributeValueMemberS)
		return pk != nil && pk.Value == "github#42"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := NewAccountRepo(api, "accounts").Link(context.Background(), &domain.Account{
		Provider: "github", ProviderAccountID: "42", UserID: "u1",
	})
	require.NoError(t, err)
	api.AssertExpectations(t)
}
