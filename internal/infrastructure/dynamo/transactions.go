package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fintrack/fintrack-api/internal/domain"
)

// TransactionRepo stores the per-user transaction log.
// PK: user_id, SK: tx_id (ULID — range order is creation order).
type TransactionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTransactionRepo(client *dynamodb.Client, tableName string) *TransactionRepo {
	return &TransactionRepo{client: client, tableName: tableName}
}

func (r *TransactionRepo) Put(ctx context.Context, t *domain.Transaction) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// QueryPage returns a page of the user's transactions, newest first.
// cursor is a base64-encoded tx_id used as ExclusiveStartKey. Returns the
// items, a next cursor (empty when no more pages), and any error.
func (r *TransactionRepo) QueryPage(ctx context.Context, userID string, limit int32, cursor string) ([]domain.Transaction, string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	}
	if cursor != "" {
		txID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = compositeKey("user_id", userID, "tx_id", txID)
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var txs []domain.Transaction
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &txs); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["tx_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return txs, nextCursor, nil
}

// Count returns the number of stored transactions for the user.
func (r *TransactionRepo) Count(ctx context.Context, userID string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

// DeleteOldest removes the n oldest entries for the user. Used to enforce
// the per-user retention cap after appends.
func (r *TransactionRepo) DeleteOldest(ctx context.Context, userID string, n int) error {
	if n <= 0 {
		return nil
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ProjectionExpression: aws.String("tx_id"),
		Limit:                aws.Int32(int32(n)),
	})
	if err != nil {
		return err
	}
	for _, item := range out.Items {
		v, ok := item["tx_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       compositeKey("user_id", userID, "tx_id", v.Value),
		}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes every transaction for the user.
func (r *TransactionRepo) DeleteAll(ctx context.Context, userID string) error {
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("user_id = :u"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":u": &types.AttributeValueMemberS{Value: userID},
			},
			ProjectionExpression: aws.String("tx_id"),
		})
		if err != nil {
			return err
		}
		if len(out.Items) == 0 {
			return nil
		}
		for _, item := range out.Items {
			v, ok := item["tx_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key:       compositeKey("user_id", userID, "tx_id", v.Value),
			}); err != nil {
				return err
			}
		}
		if out.LastEvaluatedKey == nil {
			return nil
		}
	}
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
