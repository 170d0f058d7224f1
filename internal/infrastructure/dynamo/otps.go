package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-api/internal/domain"
)

// OtpRepo manages live passcodes.
// PK: identity, SK: purpose — so a PutItem atomically supersedes any prior
// code for the same (identity, purpose) pair.
type OtpRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOtpRepo(client *dynamodb.Client, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

// Put writes the record, replacing any live code for the same key in a single
// write. This is the delete-then-insert required on every issuance.
func (r *OtpRepo) Put(ctx context.Context, rec *domain.OtpRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put otp record: %w", err)
	}
	return nil
}

func (r *OtpRepo) Get(ctx context.Context, identity string, purpose domain.Purpose) (*domain.OtpRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("identity", identity, "purpose", string(purpose)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	var rec domain.OtpRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ConsumeIfCode deletes the record only if it still holds the given code and
// issuance timestamp. Returns false when the condition fails, i.e. a
// concurrent attempt already consumed the code or a reissue replaced it.
// This is the compare-and-delete that makes a code single-use.
func (r *OtpRepo) ConsumeIfCode(ctx context.Context, identity string, purpose domain.Purpose, code string, issuedAt int64) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("identity", identity, "purpose", string(purpose)),
		ConditionExpression: aws.String("#c = :c AND #ia = :ia"),
		ExpressionAttributeNames: map[string]string{
			"#c":  "code",
			"#ia": "issued_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":  &types.AttributeValueMemberS{Value: code},
			":ia": &types.AttributeValueMemberN{Value: strconv.FormatInt(issuedAt, 10)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("consume otp record: %w", err)
	}
	return true, nil
}

// DeleteIfExpiredBy deletes the record only if its expiry is strictly before
// now. The condition is re-evaluated by DynamoDB at delete time, so a record
// reissued between our read and the delete is never lost.
func (r *OtpRepo) DeleteIfExpiredBy(ctx context.Context, identity string, purpose domain.Purpose, now int64) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      compositeKey("identity", identity, "purpose", string(purpose)),
		ConditionExpression:      aws.String("#ea < :now"),
		ExpressionAttributeNames: map[string]string{"#ea": "expires_at"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete expired otp record: %w", err)
	}
	return true, nil
}

// ScanAll returns every record in the table, following scan pagination.
// Used by the sweep and stats operations only — the table holds at most one
// live record per (identity, purpose) so it stays small.
func (r *OtpRepo) ScanAll(ctx context.Context) ([]domain.OtpRecord, error) {
	var records []domain.OtpRecord
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan otp records: %w", err)
		}
		var page []domain.OtpRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		records = append(records, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return records, nil
}
