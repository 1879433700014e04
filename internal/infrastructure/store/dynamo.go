package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/storefront/internal/domain/order"
)

// DynamoAPI is the subset of the DynamoDB client the order store calls.
type DynamoAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoOrderStore keeps one item per order: partition key uid, sort key order_id.
// Table streams (via Kinesis) feed the Lambda notifier.
type DynamoOrderStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// dynamoOrder represents the DynamoDB item structure
type dynamoOrder struct {
	UID       string `dynamodbav:"uid"`
	OrderID   string `dynamodbav:"order_id"`
	Status    string `dynamodbav:"status"`
	UserEmail string `dynamodbav:"user_email"`
	Document  string `dynamodbav:"document"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoOrderStore(client DynamoAPI, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// Put upserts the order. created_at is written only when the item is new.
func (s *DynamoOrderStore) Put(ctx context.Context, uid, orderID string, rec order.Record) error {
	if err := validateKey(uid, orderID); err != nil {
		return err
	}

	rec.ID = orderID
	rec.CreatedAt = time.Time{}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339Nano)

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"uid":      &types.AttributeValueMemberS{Value: uid},
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: aws.String("SET #doc = :doc, #st = :st, user_email = :email, updated_at = :now, created_at = if_not_exists(created_at, :now)"),
		ExpressionAttributeNames: map[string]string{
			"#doc": "document",
			"#st":  "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":doc":   &types.AttributeValueMemberS{Value: string(doc)},
			":st":    &types.AttributeValueMemberS{Value: string(rec.Status)},
			":email": &types.AttributeValueMemberS{Value: rec.UserEmail},
			":now":   &types.AttributeValueMemberS{Value: now},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

func (s *DynamoOrderStore) Get(ctx context.Context, uid, orderID string) (order.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"uid":      &types.AttributeValueMemberS{Value: uid},
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return order.Record{}, fmt.Errorf("failed to get order: %w", err)
	}
	if out.Item == nil {
		return order.Record{}, order.ErrOrderNotFound
	}
	return unmarshalDynamoOrder(out.Item)
}

func (s *DynamoOrderStore) List(ctx context.Context, uid string) ([]order.Record, error) {
	recs := []order.Record{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("uid = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: uid},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query orders: %w", err)
		}
		for _, item := range out.Items {
			rec, err := unmarshalDynamoOrder(item)
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	SortNewestFirst(recs)
	return recs, nil
}

func unmarshalDynamoOrder(item map[string]types.AttributeValue) (order.Record, error) {
	var do dynamoOrder
	if err := attributevalue.UnmarshalMap(item, &do); err != nil {
		return order.Record{}, fmt.Errorf("failed to unmarshal order item: %w", err)
	}
	return DecodeDocument(do.Document, do.CreatedAt)
}

// DecodeDocument rebuilds a record from its stored JSON document and the
// store-assigned RFC 3339 creation time.
func DecodeDocument(doc, createdAt string) (order.Record, error) {
	var rec order.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return order.Record{}, fmt.Errorf("failed to unmarshal order document: %w", err)
	}
	if createdAt != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return order.Record{}, fmt.Errorf("failed to parse created_at: %w", err)
		}
		rec.CreatedAt = t
	}
	return rec, nil
}
