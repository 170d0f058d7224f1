package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-otp-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldVerified       = "verified"
	fieldCredentialHash = "credential_hash"
	fieldUpdatedAt      = "updated_at"
)

// AccountRepo provides typed DynamoDB operations for the accounts table.
// PK: identity.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

// Create inserts the account. The conditional put makes the existence check
// and the insert a single serializable operation, so two concurrent
// registrations for the same identity cannot both succeed.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#i)"),
		ExpressionAttributeNames: map[string]string{"#i": "identity"},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("identity already registered: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, identity string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("identity", identity),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Exists(ctx context.Context, identity string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("identity", identity),
		ProjectionExpression:     aws.String("#i"),
		ExpressionAttributeNames: map[string]string{"#i": "identity"},
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

func (r *AccountRepo) Update(ctx context.Context, identity string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#i"] = "identity"
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("identity", identity),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(#i)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("account not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (r *AccountRepo) SetVerified(ctx context.Context, identity string, verified bool) error {
	return r.Update(ctx, identity, map[string]interface{}{fieldVerified: verified})
}

func (r *AccountRepo) UpdateCredential(ctx context.Context, identity, credentialHash string) error {
	return r.Update(ctx, identity, map[string]interface{}{fieldCredentialHash: credentialHash})
}

// Delete removes the account outright. Used by the registration rollback when
// OTP delivery fails, so no orphaned unverified account is left behind.
func (r *AccountRepo) Delete(ctx context.Context, identity string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("identity", identity),
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
