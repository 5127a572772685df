package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/fintrack/fintrack-api/internal/domain"
)

// SyncCodeRepo stores outstanding phone verification codes.
// PK: code, SK: phone_number.
type SyncCodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSyncCodeRepo(client *dynamodb.Client, tableName string) *SyncCodeRepo {
	return &SyncCodeRepo{client: client, tableName: tableName}
}

func (r *SyncCodeRepo) Put(ctx context.Context, e *domain.SyncCodeEntry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal sync code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SyncCodeRepo) Get(ctx context.Context, code, phone string) (*domain.SyncCodeEntry, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("code", code, "phone_number", phone),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("sync code: %w", domain.ErrNotFound)
	}
	var e domain.SyncCodeEntry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, fmt.Errorf("unmarshal sync code: %w: %s", domain.ErrCorruptData, err)
	}
	return &e, nil
}

// Delete removes the (code, phone) entry. Deleting an absent key is not an error.
func (r *SyncCodeRepo) Delete(ctx context.Context, code, phone string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("code", code, "phone_number", phone),
	})
	return err
}
