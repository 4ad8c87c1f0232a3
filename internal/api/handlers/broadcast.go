package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaichover/internal/core"
	"vaichover/internal/types"
)

// SubscriberLister lists every directory entry.
type SubscriberLister interface {
	List(ctx context.Context) ([]types.Subscriber, error)
}

// DispatchQueue enqueues one delivery. notifications.DispatchPublisher
// satisfies it.
type DispatchQueue interface {
	Publish(ctx context.Context, msg types.DispatchMessage) (types.DispatchMessage, error)
}

// BroadcastRequest is the body of POST /api/broadcast.
type BroadcastRequest struct {
	Title string `json:"title,omitempty" validate:"max=200"`
	Body  string `json:"body,omitempty" validate:"max=1000"`
	URL   string `json:"url,omitempty" validate:"omitempty,url"`
}

// BroadcastResponse reports how many deliveries were queued.
type BroadcastResponse struct {
	OK       bool `json:"ok"`
	Queued   int  `json:"queued"`
	Failed   int  `json:"failed,omitempty"`
	Audience int  `json:"audience"`
}

const (
	msgBroadcastMethod  = "Use POST"
	msgBroadcastList    = "Falha ao listar inscritos"
	msgBroadcastEnqueue = "Falha ao enfileirar notificações"
)

// BroadcastHandler fans one message out to every registered token through
// the dispatch queue.
type BroadcastHandler struct {
	subscribers SubscriberLister
	queue       DispatchQueue
	validator   *core.Validator
	defaults    MessageDefaults
	keyHash     types.SecretString
	logger      *slog.Logger
}

// NewBroadcastHandler creates a BroadcastHandler.
func NewBroadcastHandler(
	subscribers SubscriberLister,
	queue DispatchQueue,
	v *core.Validator,
	defaults MessageDefaults,
	keyHash types.SecretString,
	l *slog.Logger,
) *BroadcastHandler {
	if l == nil {
		l = slog.Default()
	}
	return &BroadcastHandler{
		subscribers: subscribers,
		queue:       queue,
		validator:   v,
		defaults:    defaults,
		keyHash:     keyHash,
		logger:      l,
	}
}

// RegisterRoutes mounts /broadcast behind the dispatch key.
func (h *BroadcastHandler) RegisterRoutes(r chi.Router) {
	r.With(core.DispatchKeyMiddleware(h.keyHash, h.logger)).
		HandleFunc("/broadcast", h.Handle)
}

// Handle lists subscribers and enqueues one DispatchMessage per token.
// Individual enqueue failures are counted; the request fails only when
// nothing could be queued.
func (h *BroadcastHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.Error(w, r, methodNotAllowed(msgBroadcastMethod))
		return
	}

	var req BroadcastRequest
	if err := decodeOptional(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if h.validator != nil {
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	subs, err := h.subscribers.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list subscribers", "error", err)
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalDB, msgBroadcastList, err))
		return
	}

	resp := BroadcastResponse{OK: true, Audience: len(subs)}
	var lastErr error
	for _, sub := range subs {
		msg := h.defaults.Message(sub.Token, req.Title, req.Body, req.URL)
		_, err := h.queue.Publish(r.Context(), types.DispatchMessage{
			Token: msg.Token,
			Title: msg.Title,
			Body:  msg.Body,
			URL:   msg.URL,
		})
		if err != nil {
			resp.Failed++
			lastErr = err
			continue
		}
		resp.Queued++
	}

	if resp.Failed > 0 {
		h.logger.WarnContext(r.Context(), "broadcast partially enqueued",
			"queued", resp.Queued,
			"failed", resp.Failed,
			"error", lastErr,
		)
		if resp.Queued == 0 {
			core.Error(w, r, types.NewAppError(types.ErrCodeUpstreamQueue, msgBroadcastEnqueue, lastErr))
			return
		}
	}

	h.logger.InfoContext(r.Context(), "broadcast enqueued", "queued", resp.Queued)
	core.JSON(w, r, http.StatusOK, resp)
}
