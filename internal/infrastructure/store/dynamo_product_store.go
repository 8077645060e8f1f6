package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// DynamoProductStore implements ProductStore on DynamoDB. The conditional
// UpdateItem expression gives the same atomic compare-and-decrement
// guarantee as the Postgres store's conditional UPDATE.
type DynamoProductStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoProduct represents the DynamoDB item structure
type dynamoProduct struct {
	ID          string `dynamodbav:"id"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description"`
	Price       int    `dynamodbav:"price"`
	Stock       int    `dynamodbav:"stock"`
	OwnerID     string `dynamodbav:"owner_id"`
	Status      string `dynamodbav:"status"`
	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

func NewDynamoProductStore(client *dynamodb.Client, tableName string) *DynamoProductStore {
	return &DynamoProductStore{client: client, tableName: tableName}
}

func (s *DynamoProductStore) Create(ctx context.Context, p *model.Product) error {
	av, err := attributevalue.MarshalMap(toDynamoProduct(p))
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put product: %w", err)
	}
	return nil
}

func (s *DynamoProductStore) Get(ctx context.Context, id string) (*model.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       productKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if result.Item == nil {
		return nil, ErrProductNotFound
	}
	return unmarshalProduct(result.Item)
}

func (s *DynamoProductStore) List(ctx context.Context) ([]*model.Product, error) {
	result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("#st = :active"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: model.ProductStatusActive},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	products := make([]*model.Product, 0, len(result.Items))
	for _, item := range result.Items {
		p, err := unmarshalProduct(item)
		if err != nil {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *DynamoProductStore) Update(ctx context.Context, p *model.Product) error {
	av, err := attributevalue.MarshalMap(toDynamoProduct(p))
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if isConditionalCheckFailed(err) {
		return ErrProductNotFound
	}
	return err
}

func (s *DynamoProductStore) SetStatus(ctx context.Context, id, status string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 productKey(id),
		UpdateExpression:    aws.String("SET #st = :status, updated_at = :ts"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":ts":     &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
		},
	})
	if isConditionalCheckFailed(err) {
		return ErrProductNotFound
	}
	return err
}

func (s *DynamoProductStore) HasStock(ctx context.Context, id string, quantity int) (bool, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return p.Stock >= quantity, nil
}

// DecrementStock reduces stock with a conditional UpdateItem, the
// document-store equivalent of the Postgres conditional UPDATE.
func (s *DynamoProductStore) DecrementStock(ctx context.Context, id string, quantity int) (*model.Product, error) {
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 productKey(id),
		UpdateExpression:    aws.String("SET stock = stock - :q, updated_at = :ts"),
		ConditionExpression: aws.String("attribute_exists(id) AND stock >= :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
			":ts": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err == nil {
		return unmarshalProduct(result.Attributes)
	}
	if !isConditionalCheckFailed(err) {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	// Condition failed: product missing or stock too low.
	p, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &InsufficientStockError{ProductID: id, Requested: quantity, Available: p.Stock}
}

func (s *DynamoProductStore) IncrementStock(ctx context.Context, id string, quantity int) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 productKey(id),
		UpdateExpression:    aws.String("SET stock = stock + :q, updated_at = :ts"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
			":ts": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
		},
	})
	if isConditionalCheckFailed(err) {
		return ErrProductNotFound
	}
	return err
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func toDynamoProduct(p *model.Product) dynamoProduct {
	return dynamoProduct{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		OwnerID:     p.OwnerID,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func unmarshalProduct(item map[string]types.AttributeValue) (*model.Product, error) {
	var dp dynamoProduct
	if err := attributevalue.UnmarshalMap(item, &dp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, dp.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, dp.UpdatedAt)

	return &model.Product{
		ID:          dp.ID,
		Title:       dp.Title,
		Description: dp.Description,
		Price:       dp.Price,
		Stock:       dp.Stock,
		OwnerID:     dp.OwnerID,
		Status:      dp.Status,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
