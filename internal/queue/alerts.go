// Package queue publishes newly raised alerts to SQS for downstream consumers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"airtwin/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertMessage is the body of one published alert.
type AlertMessage struct {
	ID       string      `json:"id"`
	Airport  string      `json:"airport"`
	RaisedAt time.Time   `json:"raisedAt"`
	Alert    types.Alert `json:"alert"`
}

// AlertPublisher sends one SQS message per alert.
type AlertPublisher struct {
	client   SQSSender
	queueURL string
	airport  string
	clock    types.Clock
	logger   *slog.Logger
}

// NewAlertPublisher creates a publisher that sends one message per alert to
// queueURL, tagged with the airport code.
func NewAlertPublisher(client SQSSender, queueURL, airport string, clock types.Clock, logger *slog.Logger) *AlertPublisher {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertPublisher{
		client:   client,
		queueURL: queueURL,
		airport:  airport,
		clock:    clock,
		logger:   logger,
	}
}

// Publish sends every alert and returns the joined errors of the sends that
// failed. A failed send does not stop the remaining ones.
func (p *AlertPublisher) Publish(ctx context.Context, alerts []types.Alert) error {
	now := p.clock.Now()
	var errs []error
	for _, a := range alerts {
		if err := p.send(ctx, AlertMessage{
			ID:       uuid.New().String(),
			Airport:  p.airport,
			RaisedAt: now,
			Alert:    a,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *AlertPublisher) send(ctx context.Context, msg AlertMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal AlertMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Alert.Kind)),
			},
			"severity": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Alert.Severity)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send alert %s to %s: %w", msg.Alert.Key(), p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "alert published",
		"queue_url", p.queueURL,
		"message_id", msg.ID,
		"alert", msg.Alert.Key(),
		"severity", string(msg.Alert.Severity),
	)
	return nil
}
