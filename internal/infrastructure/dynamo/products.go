package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kgbox/expiry-notifier/internal/application/expiry"
	"github.com/kgbox/expiry-notifier/internal/domain"
)

// nameCandidates are the historical spellings of the product display name,
// in priority order.
var nameCandidates = []string{"nama_product", "nama", "name"}

// ProductRepo provides read access to the products table for expiry scans.
// The engine never writes products; the catalog belongs to another service.
type ProductRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewProductRepo(client *dynamodb.Client, tableName string) *ProductRepo {
	return &ProductRepo{client: client, tableName: tableName}
}

// ListForExpiry reads every product, or one tenant's products when tenantID
// is non-empty. Only the tenant id, name spellings, and candidate expiry
// fields are projected to limit transferred data. Pages are followed until
// the table is exhausted, so a successful return has seen every matching
// record.
func (r *ProductRepo) ListForExpiry(ctx context.Context, tenantID string) ([]domain.Product, error) {
	proj, names := expiryProjection()

	var out []domain.Product
	var lastKey map[string]types.AttributeValue
	for {
		var (
			items []map[string]types.AttributeValue
			next  map[string]types.AttributeValue
			err   error
		)
		if tenantID != "" {
			items, next, err = r.queryTenantPage(ctx, tenantID, proj, names, lastKey)
		} else {
			items, next, err = r.scanPage(ctx, proj, names, lastKey)
		}
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			p, err := decodeProduct(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}

		if next == nil {
			return out, nil
		}
		lastKey = next
	}
}

func (r *ProductRepo) scanPage(ctx context.Context, proj string, names map[string]string, startKey map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String(proj),
		ExpressionAttributeNames: names,
		ExclusiveStartKey:        startKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan products: %w", err)
	}
	return out.Items, out.LastEvaluatedKey, nil
}

func (r *ProductRepo) queryTenantPage(ctx context.Context, tenantID, proj string, names map[string]string, startKey map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("tenant_id-index"),
		KeyConditionExpression: aws.String("tenant_id = :tid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tid": &types.AttributeValueMemberS{Value: tenantID},
		},
		ProjectionExpression:     aws.String(proj),
		ExpressionAttributeNames: names,
		ExclusiveStartKey:        startKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("query products for tenant %s: %w", tenantID, err)
	}
	return out.Items, out.LastEvaluatedKey, nil
}

// expiryProjection builds the projection over the key, tenant, name
// spellings, and every expiry field candidate. All attributes go through
// #aliases since several spellings collide with DynamoDB reserved words.
func expiryProjection() (string, map[string]string) {
	attrs := []string{"product_id", "tenant_id"}
	attrs = append(attrs, nameCandidates...)
	attrs = append(attrs, expiry.FieldCandidates...)

	names := make(map[string]string, len(attrs))
	expr := ""
	for i, a := range attrs {
		alias := fmt.Sprintf("#p%d", i)
		names[alias] = a
		if i > 0 {
			expr += ", "
		}
		expr += alias
	}
	return expr, names
}

func decodeProduct(item map[string]types.AttributeValue) (domain.Product, error) {
	var fields map[string]any
	if err := attributevalue.UnmarshalMap(item, &fields); err != nil {
		return domain.Product{}, fmt.Errorf("unmarshal product: %w", err)
	}

	p := domain.Product{Fields: fields}
	if v, ok := fields["product_id"].(string); ok {
		p.ProductID = v
	}
	if v, ok := fields["tenant_id"].(string); ok {
		p.TenantID = v
	}
	for _, cand := range nameCandidates {
		if v, ok := fields[cand].(string); ok && v != "" {
			p.Name = v
			break
		}
	}
	return p, nil
}
