package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"vaichover/internal/external"
	"vaichover/internal/types"
)

// WorkerConfig holds the dependencies of the dispatch worker Handler.
type WorkerConfig struct {
	Dispatcher *Dispatcher
	Metrics    DeliveryMetrics
	// AppURL is the click-through link for messages without a url.
	AppURL string
	Logger types.Logger
	Clock  types.Clock
}

// Handler consumes the dispatch queue.
type Handler struct {
	dispatcher *Dispatcher
	metrics    DeliveryMetrics
	appURL     string
	logger     types.Logger
	clock      types.Clock
}

// NewHandler creates a dispatch worker Handler.
func NewHandler(cfg WorkerConfig) *Handler {
	h := &Handler{
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		appURL:     cfg.AppURL,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
	}
	if h.metrics == nil {
		h.metrics = NopMetrics{}
	}
	if h.logger == nil {
		h.logger = types.NopLogger{}
	}
	if h.clock == nil {
		h.clock = utcClock{}
	}
	return h
}

// Handle processes an SQS batch. Lambda SQS integration uses partial batch
// responses: only messages that failed transiently are reported so SQS
// redelivers them. Malformed bodies and permanent provider rejections are
// acknowledged.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("dispatch failed, requesting redelivery",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.DispatchMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Error("failed to unmarshal dispatch message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return nil
	}
	if msg.Token == "" {
		h.logger.Warn("dispatch message without token", "dispatch_id", msg.ID)
		return nil
	}

	logger := h.logger.With("dispatch_id", msg.ID, "trace_id", msg.TraceID)

	if enqueued, ok := enqueueTime(msg, record); ok {
		h.metrics.RecordQueueLag(ctx, h.clock.Now().Sub(enqueued))
	}

	link := msg.URL
	if link == "" {
		link = h.appURL
	}
	name, err := h.dispatcher.Deliver(ctx, types.PushMessage{
		Token: msg.Token,
		Title: msg.Title,
		Body:  msg.Body,
		URL:   msg.URL,
		Link:  link,
	})
	if err != nil {
		if external.IsPermanentPushError(err) {
			logger.Warn("dispatch dropped", "reason", string(types.CodeOf(err)))
			return nil
		}
		return fmt.Errorf("deliver %s: %w", msg.ID, err)
	}

	logger.Info("dispatch delivered", "provider_message", name)
	return nil
}

// enqueueTime prefers the publisher's stamp and falls back to the SQS
// SentTimestamp attribute (milliseconds since epoch).
func enqueueTime(msg types.DispatchMessage, record events.SQSMessage) (time.Time, bool) {
	if !msg.EnqueuedAt.IsZero() {
		return msg.EnqueuedAt, true
	}
	raw, ok := record.Attributes["SentTimestamp"]
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
