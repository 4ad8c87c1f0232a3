// Package handlers contains the HTTP handler implementations for the
// vaichover token directory API.
//
// Every handler follows the same injection pattern: dependencies are small
// interfaces declared here, construction goes through NewXHandler, and routes
// are attached with RegisterRoutes so cmd/api can mount them under /api.
//
// The endpoints keep the method-dispatch contract of the original serverless
// functions: one path, method checked inside the handler, 405 with an error
// body for anything else.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"vaichover/internal/core"
	"vaichover/internal/types"
)

// --- Service Interfaces ---

// TokenStore is the subscriber directory as seen by the register-token
// endpoint. db.SubscriberRepository satisfies it.
type TokenStore interface {
	Upsert(ctx context.Context, sub types.Subscriber) error
	Delete(ctx context.Context, token string) (bool, error)
}

// --- Request Models ---

// TokenRequest is the body of POST and DELETE /api/register-token.
type TokenRequest struct {
	Token string `json:"token"`
}

const (
	msgTokenMethod   = "Use POST ou DELETE"
	msgTokenMissing  = "Token ausente"
	msgTokenRegister = "Falha ao registrar token"
	msgTokenRemove   = "Falha ao remover token"

	unknownUserAgent = "unknown"
)

// --- Handler ---

// TokenHandler maintains the remote token directory.
type TokenHandler struct {
	store  TokenStore
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(store TokenStore, l *slog.Logger) *TokenHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TokenHandler{
		store:  store,
		logger: l,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes mounts /register-token. OPTIONS is answered by the CORS
// middleware before reaching the handler.
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/register-token", h.Handle)
}

// Handle dispatches on method.
func (h *TokenHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.register(w, r)
	case http.MethodDelete:
		h.remove(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		core.Error(w, r, methodNotAllowed(msgTokenMethod))
	}
}

func (h *TokenHandler) register(w http.ResponseWriter, r *http.Request) {
	token, err := readToken(w, r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	userAgent := strings.TrimSpace(r.UserAgent())
	if userAgent == "" {
		userAgent = unknownUserAgent
	}

	sub := types.Subscriber{Token: token, UserAgent: userAgent, UpdatedAt: h.now()}
	if err := h.store.Upsert(r.Context(), sub); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to register token", "error", err)
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalDB, msgTokenRegister, err))
		return
	}

	core.JSON(w, r, http.StatusOK, core.OKResponse{OK: true})
}

func (h *TokenHandler) remove(w http.ResponseWriter, r *http.Request) {
	token, err := readToken(w, r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	removed, err := h.store.Delete(r.Context(), token)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to remove token", "error", err)
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalDB, msgTokenRemove, err))
		return
	}
	if !removed {
		h.logger.InfoContext(r.Context(), "token was not registered")
	}

	core.JSON(w, r, http.StatusOK, core.OKResponse{OK: true, Removed: true})
}

// readToken decodes an optional JSON body and returns the trimmed token.
func readToken(w http.ResponseWriter, r *http.Request) (string, error) {
	var req TokenRequest
	if err := decodeOptional(w, r, &req); err != nil {
		return "", err
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, msgTokenMissing, nil)
	}
	return token, nil
}

// decodeOptional decodes the body when one was sent. A missing body leaves
// dst zero so field checks report the specific missing field.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil
	}
	return core.DecodeJSON(w, r, dst)
}

func methodNotAllowed(msg string) error {
	return types.NewAppError(types.ErrCodeValidationMethod, msg, nil)
}
