package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/fintrack/fintrack-api/internal/domain"
)

// DirectoryRepo is the reverse index from contact identifiers to owners.
// PK: key (normalized phone number or lowercased email).
// It is intentionally a dumb mapping; conflict policy lives in the
// verification service.
type DirectoryRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDirectoryRepo(client *dynamodb.Client, tableName string) *DirectoryRepo {
	return &DirectoryRepo{client: client, tableName: tableName}
}

func (r *DirectoryRepo) Lookup(ctx context.Context, key string) (*domain.DirectoryRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("key", key),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("directory key %s: %w", key, domain.ErrNotFound)
	}
	var rec domain.DirectoryRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Bind associates key with ownerID, overwriting any existing binding
// (last writer wins).
func (r *DirectoryRepo) Bind(ctx context.Context, key, ownerID string) error {
	item, err := attributevalue.MarshalMap(&domain.DirectoryRecord{
		Key:       key,
		OwnerID:   ownerID,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal directory record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Unbind removes the binding for key. An absent key is not an error.
func (r *DirectoryRepo) Unbind(ctx context.Context, key string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("key", key),
	})
	return err
}
