package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"vaichover/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DispatchPublisher enqueues DispatchMessages on the dispatch queue, one
// message per device token.
type DispatchPublisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
	clock    types.Clock
}

// NewDispatchPublisher creates a DispatchPublisher targeting queueURL.
func NewDispatchPublisher(client SQSSender, queueURL string, logger types.Logger) *DispatchPublisher {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &DispatchPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
		clock:    utcClock{},
	}
}

// Publish stamps msg with an ID and enqueue time when they are unset and
// sends it to the dispatch queue. It returns the message as sent.
func (p *DispatchPublisher) Publish(ctx context.Context, msg types.DispatchMessage) (types.DispatchMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = p.clock.Now()
	}
	if msg.TraceID == "" {
		msg.TraceID = types.GetRequestID(ctx)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return msg, fmt.Errorf("dispatch publisher: failed to marshal message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return msg, types.NewAppError(types.ErrCodeUpstreamQueue,
			"failed to enqueue dispatch message",
			fmt.Errorf("send to %s: %w", p.queueURL, err))
	}

	p.logger.Info("dispatch message published",
		"dispatch_id", msg.ID,
		"trace_id", msg.TraceID,
	)
	return msg, nil
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
