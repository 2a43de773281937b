package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// EventAttendanceRecorded is the EventType attribute of attendance messages
const EventAttendanceRecorded = "attendance.recorded"

// SQSClient is the sendMessage subset of the AWS SQS client
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSProducer publishes attendance events to an SQS queue
type SQSProducer struct {
	client   SQSClient
	queueURL string
}

// NewSQSProducer creates a producer for queueURL
func NewSQSProducer(client SQSClient, queueURL string) *SQSProducer {
	return &SQSProducer{
		client:   client,
		queueURL: queueURL,
	}
}

// PublishAttendanceRecorded sends one attendance event to the queue
func (p *SQSProducer) PublishAttendanceRecorded(ctx context.Context, event models.AttendanceRecordedEvent) error {
	if event.Type == "" {
		event.Type = EventAttendanceRecorded
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	attrs := map[string]types.MessageAttributeValue{
		"EventType": {
			DataType:    aws.String("String"),
			StringValue: aws.String(event.Type),
		},
		"Status": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(event.Status)),
		},
	}
	telemetry.InjectTraceContext(ctx, attrs)

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message to attendance queue: %w", err)
	}

	return nil
}
