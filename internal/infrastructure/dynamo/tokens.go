package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kgbox/expiry-notifier/internal/domain"
	"go.uber.org/zap"
)

// batchWriteMax is the DynamoDB BatchWriteItem request limit.
const batchWriteMax = 25

// TokenRepo provides typed DynamoDB operations for the device tokens table.
// The token string is the partition key, so registration is idempotent and a
// tenant can never hold duplicate endpoints.
type TokenRepo struct {
	client    *dynamodb.Client
	tableName string
	log       *zap.Logger
}

func NewTokenRepo(client *dynamodb.Client, tableName string, log *zap.Logger) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName, log: log}
}

func (r *TokenRepo) Put(ctx context.Context, t *domain.DeviceToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal device token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TokenRepo) Get(ctx context.Context, token string) (*domain.DeviceToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device token not found: %w", domain.ErrNotFound)
	}
	var t domain.DeviceToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepo) ListByTenant(ctx context.Context, tenantID string) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("tenant_id-index"),
			KeyConditionExpression: aws.String("tenant_id = :tid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":tid": &types.AttributeValueMemberS{Value: tenantID},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.DeviceToken
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		tokens = append(tokens, page...)
		if out.LastEvaluatedKey == nil {
			return tokens, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

func (r *TokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	return err
}

// BatchDelete removes tokens in chunks of 25 (the BatchWriteItem limit).
// Unprocessed keys are retried once and then logged; pruning is a cleanup
// optimization, so partial failure never propagates as an error beyond the
// chunk that could not be submitted at all.
func (r *TokenRepo) BatchDelete(ctx context.Context, tokens []string) error {
	for start := 0; start < len(tokens); start += batchWriteMax {
		end := min(start+batchWriteMax, len(tokens))
		if err := r.deleteChunk(ctx, tokens[start:end]); err != nil {
			return fmt.Errorf("batch delete tokens: %w", err)
		}
	}
	return nil
}

func (r *TokenRepo) deleteChunk(ctx context.Context, tokens []string) error {
	reqs := make([]types.WriteRequest, 0, len(tokens))
	for _, t := range tokens {
		reqs = append(reqs, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: strKey("token", t)},
		})
	}

	out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{r.tableName: reqs},
	})
	if err != nil {
		return err
	}

	// One retry for throttled leftovers, then give up and log.
	if leftover := out.UnprocessedItems[r.tableName]; len(leftover) > 0 {
		out, err = r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: leftover},
		})
		if err != nil {
			return err
		}
		if remaining := out.UnprocessedItems[r.tableName]; len(remaining) > 0 {
			r.log.Warn("token deletes left unprocessed after retry",
				zap.Int("count", len(remaining)))
		}
	}
	return nil
}
