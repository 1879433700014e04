package kinesis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
)

// ConvertFromKinesisRecord converts a Kinesis record carrying an orders-table
// change (DynamoDB Streams format) to a store.Event. It returns nil when the
// change does not correspond to an order event.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord maps INSERT to OrderPlaced and a MODIFY
// that changes the status to OrderStatusChanged. Everything else is ignored.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*store.Event, error) {
	switch record.EventName {
	case "INSERT":
		uid, rec, err := decodeImage(record.Change.NewImage)
		if err != nil {
			return nil, err
		}
		event, err := store.NewEvent(rec.ID, uid, order.EventOrderPlaced, order.NewOrderPlaced(uid, rec, rec.CreatedAt))
		if err != nil {
			return nil, err
		}
		event.ID = eventID(record, rec.ID)
		event.Timestamp = rec.CreatedAt
		return &event, nil

	case "MODIFY":
		uid, rec, err := decodeImage(record.Change.NewImage)
		if err != nil {
			return nil, err
		}
		_, prev, err := decodeImage(record.Change.OldImage)
		if err != nil {
			return nil, fmt.Errorf("old image: %w", err)
		}
		if prev.Status == rec.Status {
			return nil, nil
		}

		changedAt := updatedAt(record.Change.NewImage, rec.CreatedAt)
		event, err := store.NewEvent(rec.ID, uid, order.EventOrderStatusChanged, order.OrderStatusChanged{
			OrderID:   rec.ID,
			UserID:    uid,
			UserEmail: rec.UserEmail,
			From:      prev.Status,
			To:        rec.Status,
			ChangedAt: changedAt,
		})
		if err != nil {
			return nil, err
		}
		event.ID = eventID(record, rec.ID)
		event.Timestamp = changedAt
		return &event, nil
	}
	return nil, nil
}

// decodeImage extracts the owner and the order document from a stream image.
func decodeImage(image map[string]events.DynamoDBAttributeValue) (string, order.Record, error) {
	if image == nil {
		return "", order.Record{}, fmt.Errorf("DynamoDB image is nil")
	}

	var uid, orderID, doc, createdAt string
	if v, ok := image["uid"]; ok {
		uid = v.String()
	}
	if v, ok := image["order_id"]; ok {
		orderID = v.String()
	}
	if v, ok := image["document"]; ok {
		doc = v.String()
	}
	if v, ok := image["created_at"]; ok {
		createdAt = v.String()
	}

	if uid == "" || orderID == "" || doc == "" {
		return "", order.Record{}, fmt.Errorf("missing required fields: uid=%s, order_id=%s, document set=%t",
			uid, orderID, doc != "")
	}

	rec, err := store.DecodeDocument(doc, createdAt)
	if err != nil {
		return "", order.Record{}, err
	}
	rec.ID = orderID
	return uid, rec, nil
}

func updatedAt(image map[string]events.DynamoDBAttributeValue, fallback time.Time) time.Time {
	v, ok := image["updated_at"]
	if !ok {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, v.String())
	if err != nil {
		return fallback
	}
	return t
}

// eventID keeps redeliveries of the same stream record idempotent downstream.
func eventID(record events.DynamoDBEventRecord, orderID string) string {
	if record.EventID != "" {
		return record.EventID
	}
	return orderID + ":" + record.EventName
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event to store.Events.
// Returns successfully converted events and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*store.Event, []error) {
	var eventList []*store.Event
	var errs []error

	for _, record := range kinesisEvent.Records {
		event, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if event != nil {
			eventList = append(eventList, event)
		}
	}

	return eventList, errs
}
