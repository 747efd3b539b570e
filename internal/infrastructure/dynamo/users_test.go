package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lumos-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFindByEmail_Hit(t *testing.T) {
	verified := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	item, err := attributevalue.MarshalMap(&domain.User{UserID: "u1", Email: "a@b.com", EmailVerified: &verified})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		v, _ := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
		return *in.IndexName == emailIndex && v != nil && v.Value == "a@b.com"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	u, err := NewUserRepo(api, "users").FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	require.NotNil(t, u.EmailVerified)
	assert.True(t, verified.Equal(*u.EmailVerified))
	assert.Nil(t, u.StripeCustomerID)
}

func TestFindByEmail_Miss_IsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewUserRepo(api, "users").FindByEmail(context.Background(), "x@b.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFindByEmail_IndexLag_ResolvedThroughGuard(t *testing.T) {
	item, err := attributevalue.MarshalMap(&domain.User{UserID: "u1", Email: "a@b.com"})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		k, _ := in.Key["user_id"].(*types.AttributeValueMemberS)
		return k != nil && k.Value == "email#a@b.com" && *in.ConsistentRead
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"user_id":       &types.AttributeValueMemberS{Value: "email#a@b.com"},
		"owner_user_id": &types.AttributeValueMemberS{Value: "u1"},
	}}, nil)
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		k, _ := in.Key["user_id"].(*types.AttributeValueMemberS)
		return k != nil && k.Value == "u1"
	})).Return(&dynamodb.GetItemOutput{Item: item}, nil)

	u, err := NewUserRepo(api, "users").FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

func TestFindByEmail_Empty_SkipsQuery(t *testing.T) {
	api := &mockAPI{}

	_, err := NewUserRepo(api, "users").FindByEmail(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	api.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestFindByID_Miss_IsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewUserRepo(api, "users").FindByID(context.Background(), "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreate_ReservesEmail(t *testing.T) {
	api := &mockAPI{}
	var got *dynamodb.TransactWriteItemsInput
	api.On("TransactWriteItems", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*dynamodb.TransactWriteItemsInput) }).
		Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	require.NoError(t, NewUserRepo(api, "users").Create(context.Background(), &domain.User{UserID: "u1", Email: "a@b.com"}))

	require.Len(t, got.TransactItems, 2)
	guard := got.TransactItems[1].Put
	require.NotNil(t, guard)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "email#a@b.com"}, guard.Item["user_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "u1"}, guard.Item["owner_user_id"])
	assert.NotContains(t, guard.Item, "email")
	assert.Equal(t, "attribute_not_exists(user_id)", *guard.ConditionExpression)
}

func TestCreate_Conflict(t *testing.T) {
	api := &mockAPI{}
	api.On("TransactWriteItems", mock.Anything, mock.Anything).
		Return(nil, &types.TransactionCanceledException{Message: strPtr("ConditionalCheckFailed")})

	err := NewUserRepo(api, "users").Create(context.Background(), &domain.User{UserID: "u1", Email: "a@b.com"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestUpdateBilling_OnlySetFields(t *testing.T) {
	api := &mockAPI{}
	var got *dynamodb.UpdateItemInput
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	end := time.Now().Add(time.Hour)
	err := NewUserRepo(api, "users").UpdateBilling(context.Background(), "u1", domain.BillingUpdate{
		CustomerID:       strPtr("cus_1"),
		PriceID:          strPtr("price_1"),
		CurrentPeriodEnd: &end,
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	var fields []string
	for _, n := range got.ExpressionAttributeNames {
		fields = append(fields, n)
	}
	assert.ElementsMatch(t, []string{
		fieldStripeCustomerID, fieldStripePriceID, fieldStripeCurrentPeriodEnd, fieldUpdatedAt,
	}, fields)
}

func TestUpdate_MissingUser_IsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{Message: strPtr("missing")})

	err := NewUserRepo(api, "users").MarkEmailVerified(context.Background(), "u1", time.Now())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateProfile_SetsNameAndImage(t *testing.T) {
	api := &mockAPI{}
	var got *dynamodb.UpdateItemInput
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	require.NoError(t, NewUserRepo(api, "users").UpdateProfile(context.Background(), "u1", "Ada", "https://img/a.png"))

	var fields []string
	for _, n := range got.ExpressionAttributeNames {
		fields = append(fields, n)
	}
	assert.ElementsMatch(t, []string{fieldName, fieldImage, fieldUpdatedAt}, fields)
	assert.Equal(t, "users", *got.TableName)
}

func strPtr(s string) *string { return &s }
