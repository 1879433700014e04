package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/kinesis"
	"github.com/example/storefront/internal/notification"
)

var notificationHandler *notification.Handler

func init() {
	smtpHost := getEnv("SMTP_HOST", "localhost")
	smtpPort := getEnv("SMTP_PORT", "1025")
	smtpFrom := getEnv("SMTP_FROM", "orders@storefront.local")

	emailSvc := email.NewService(smtpHost, smtpPort, smtpFrom)
	notificationHandler = notification.NewHandler(emailSvc)

	log.Printf("[Lambda Notifier] Initialized (SMTP: %s:%s)", smtpHost, smtpPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// handler consumes orders-table changes forwarded from DynamoDB Streams to
// Kinesis. Records that fail are reported back so only they are retried.
func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Printf("[Lambda Notifier] Received %d records", len(kinesisEvent.Records))

	var batchItemFailures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord) {
		batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range kinesisEvent.Records {
		event, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			log.Printf("[Lambda Notifier] Failed to convert record %s: %v", record.EventID, err)
			fail(record)
			continue
		}
		if event == nil {
			continue
		}

		log.Printf("[Lambda Notifier] Processing event: %s (type: %s)", event.ID, event.EventType)

		eventJSON, err := json.Marshal(event)
		if err != nil {
			log.Printf("[Lambda Notifier] Failed to marshal event %s: %v", event.ID, err)
			fail(record)
			continue
		}

		if err := notificationHandler.HandleEvent(ctx, []byte(event.AggregateID), eventJSON); err != nil {
			log.Printf("[Lambda Notifier] Failed to process event %s: %v", event.ID, err)
			fail(record)
		}
	}

	successCount := len(kinesisEvent.Records) - len(batchItemFailures)
	log.Printf("[Lambda Notifier] Processed %d/%d records successfully", successCount, len(kinesisEvent.Records))

	return events.KinesisEventResponse{BatchItemFailures: batchItemFailures}, nil
}

func main() {
	lambda.Start(handler)
}
