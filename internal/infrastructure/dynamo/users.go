package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lumos-api/internal/domain"
)

const (
	emailIndex       = "email-index"
	emailGuardPrefix = "email#"
	ownerUserAttr    = "owner_user_id"
)

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    API
	tableName string
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// Create inserts a new user together with a guard item that reserves its
// email. A taken user_id or email fails with domain.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item: map[string]types.AttributeValue{
					"user_id":     &types.AttributeValueMemberS{Value: emailGuardKey(u.Email)},
					ownerUserAttr: &types.AttributeValueMemberS{Value: u.UserID},
				},
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
		},
	})
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return fmt.Errorf("user %s or email %s exists: %w", u.UserID, u.Email, domain.ErrConflict)
	}
	return err
}

// emailGuardKey is the user_id of the item reserving email. Guard items carry
// no email attribute, so they stay out of the email index.
func emailGuardKey(email string) string {
	return emailGuardPrefix + email
}

// FindByID returns the user with userID or a domain.ErrNotFound-wrapped error.
func (r *UserRepo) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("user_id", userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail looks the user up through the email GSI. The index lags behind
// writes, so a miss is confirmed against the email guard item.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("empty email: %w", domain.ErrNotFound)
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(emailIndex),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": "email"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return r.findByEmailGuard(ctx, email)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) findByEmailGuard(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("user_id", emailGuardKey(email)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	owner, _ := out.Item[ownerUserAttr].(*types.AttributeValueMemberS)
	if owner == nil || owner.Value == "" {
		return nil, fmt.Errorf("user with email %s: %w", email, domain.ErrNotFound)
	}
	return r.FindByID(ctx, owner.Value)
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return err
}

// MarkEmailVerified stamps the time the user last completed an email sign-in.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldEmailVerified: at.UTC()})
}

// UpdateProfile overwrites the display name and avatar.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID, name, image string) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldName: name, fieldImage: image})
}

func (r *UserRepo) UpdateBilling(ctx context.Context, userID string, b domain.BillingUpdate) error {
	updates := map[string]interface{}{}
	if b.CustomerID != nil {
		updates[fieldStripeCustomerID] = *b.CustomerID
	}
	if b.SubscriptionID != nil {
		updates[fieldStripeSubscriptionID] = *b.SubscriptionID
	}
	if b.PriceID != nil {
		updates[fieldStripePriceID] = *b.PriceID
	}
	if b.CurrentPeriodEnd != nil {
		updates[fieldStripeCurrentPeriodEnd] = b.CurrentPeriodEnd.UTC()
	}
	return r.Update(ctx, userID, updates)
}
