package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vaichover/internal/config"
	"vaichover/internal/core"
	"vaichover/internal/types"
)

// PushDeliverer sends a single push message. notifications.Dispatcher
// satisfies it.
type PushDeliverer interface {
	Deliver(ctx context.Context, msg types.PushMessage) (string, error)
}

// SendNotificationRequest is the body of POST /api/send-notification.
type SendNotificationRequest struct {
	Token string `json:"token"`
	Title string `json:"title,omitempty" validate:"max=200"`
	Body  string `json:"body,omitempty" validate:"max=1000"`
	URL   string `json:"url,omitempty" validate:"omitempty,url"`
}

const (
	msgDispatchMethod  = "Use POST"
	msgDispatchToken   = "Campo token é obrigatório"
	msgDispatchFailure = "Falha ao enviar notificação."
)

// MessageDefaults fills the optional parts of an outgoing push.
type MessageDefaults struct {
	Title  string
	Body   string
	AppURL string
}

// DefaultsFromConfig builds MessageDefaults from the push and server sections.
func DefaultsFromConfig(cfg *config.Config) MessageDefaults {
	return MessageDefaults{
		Title:  cfg.Push.DefaultTitle,
		Body:   cfg.Push.DefaultBody,
		AppURL: cfg.Server.PublicAppURL,
	}
}

// Message builds a PushMessage, applying defaults to empty fields. The
// click-through link is url when given, else the public app URL; the data
// url is carried only when given.
func (d MessageDefaults) Message(token, title, body, url string) types.PushMessage {
	if strings.TrimSpace(title) == "" {
		title = d.Title
	}
	if strings.TrimSpace(body) == "" {
		body = d.Body
	}
	link := url
	if link == "" {
		link = d.AppURL
	}
	return types.PushMessage{Token: token, Title: title, Body: body, URL: url, Link: link}
}

// DispatchHandler sends a push to one device on operator request.
type DispatchHandler struct {
	deliverer PushDeliverer
	validator *core.Validator
	defaults  MessageDefaults
	keyHash   types.SecretString
	logger    *slog.Logger
}

// NewDispatchHandler creates a DispatchHandler. keyHash, when set, guards the
// route with DispatchKeyMiddleware.
func NewDispatchHandler(
	deliverer PushDeliverer,
	v *core.Validator,
	defaults MessageDefaults,
	keyHash types.SecretString,
	l *slog.Logger,
) *DispatchHandler {
	if l == nil {
		l = slog.Default()
	}
	return &DispatchHandler{
		deliverer: deliverer,
		validator: v,
		defaults:  defaults,
		keyHash:   keyHash,
		logger:    l,
	}
}

// RegisterRoutes mounts /send-notification behind the dispatch key.
func (h *DispatchHandler) RegisterRoutes(r chi.Router) {
	r.With(core.DispatchKeyMiddleware(h.keyHash, h.logger)).
		HandleFunc("/send-notification", h.Handle)
}

// Handle sends the notification.
func (h *DispatchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.Error(w, r, methodNotAllowed(msgDispatchMethod))
		return
	}

	var req SendNotificationRequest
	if err := decodeOptional(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, msgDispatchToken, nil))
		return
	}
	if h.validator != nil {
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	name, err := h.deliverer.Deliver(r.Context(), h.defaults.Message(req.Token, req.Title, req.Body, req.URL))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to send notification",
			"error", err,
			"code", string(types.CodeOf(err)),
		)
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, msgDispatchFailure, err))
		return
	}

	h.logger.InfoContext(r.Context(), "notification sent", "provider_message", name)
	core.JSON(w, r, http.StatusOK, core.OKResponse{OK: true})
}
