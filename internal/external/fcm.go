package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vaichover/internal/types"
)

const fcmAPIBase = "https://fcm.googleapis.com"

// ErrTokenUnregistered is returned by FCMClient.Send when the provider no
// longer recognises the device token. Callers prune the token from the
// directory on this error.
var ErrTokenUnregistered = types.NewAppError(types.ErrCodePushTokenUnregistered, "device token is no longer registered", nil)

// FCMConfig holds the settings for FCMClient.
type FCMConfig struct {
	ProjectID   string
	AccessToken types.SecretString // OAuth2 bearer for the HTTP v1 API
	BaseURL     string             // Override for testing; defaults to fcmAPIBase
	Logger      *slog.Logger
}

type fcmSendRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Webpush      *fcmWebpush       `json:"webpush,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmWebpush struct {
	FCMOptions fcmWebpushOptions `json:"fcm_options"`
}

type fcmWebpushOptions struct {
	Link string `json:"link,omitempty"`
}

type fcmSendResponse struct {
	Name string `json:"name"`
}

type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// unregistered reports whether the provider says the token is dead.
func (e fcmErrorResponse) unregistered(httpStatus int) bool {
	if httpStatus == http.StatusNotFound || e.Error.Status == "NOT_FOUND" {
		return true
	}
	for _, d := range e.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return true
		}
	}
	return false
}

// FCMClient implements PushSender against the Firebase Cloud Messaging
// HTTP v1 API.
type FCMClient struct {
	base        *BaseClient
	projectID   string
	accessToken types.SecretString
	baseURL     string
	logger      *slog.Logger
}

// NewFCMClient creates an FCMClient. The httpClient timeout should be short;
// the dispatch worker retries through SQS redelivery.
func NewFCMClient(httpClient *http.Client, cfg FCMConfig) *FCMClient {
	base := NewBaseClient(
		httpClient,
		"fcm",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"VaiChover/1.0",
	)
	return NewFCMClientWithBase(base, cfg)
}

// NewFCMClientWithBase creates an FCMClient with a pre-configured BaseClient.
func NewFCMClientWithBase(base *BaseClient, cfg FCMConfig) *FCMClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fcmAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMClient{
		base:        base,
		projectID:   cfg.ProjectID,
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		logger:      logger,
	}
}

// Send delivers msg. The click-through link is msg.Link; msg.URL, when set,
// is also carried in the data payload for the service worker.
func (c *FCMClient) Send(ctx context.Context, msg types.PushMessage) (string, error) {
	if msg.Token == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "device token is required", nil)
	}

	m := fcmMessage{
		Token:        msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
	}
	if msg.Link != "" {
		m.Webpush = &fcmWebpush{FCMOptions: fcmWebpushOptions{Link: msg.Link}}
	}
	if msg.URL != "" {
		m.Data = map[string]string{"url": msg.URL}
	}

	body, err := json.Marshal(fcmSendRequest{Message: m})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize push message", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create FCM send request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return "", wrapUpstream("FCM", "Send", types.ErrCodeUpstreamPush, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", c.handleErrorResponse(resp)
	}

	var out fcmSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamPush, "failed to decode FCM send response", err)
	}
	return out.Name, nil
}

func (c *FCMClient) handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed fcmErrorResponse
	_ = json.Unmarshal(raw, &parsed)

	c.logger.Error("FCM API error",
		"status_code", resp.StatusCode,
		"fcm_status", parsed.Error.Status,
		"response_body", string(raw),
	)

	cause := fmt.Errorf("FCM send returned %d: %s", resp.StatusCode, parsed.Error.Message)
	switch {
	case parsed.unregistered(resp.StatusCode):
		return types.NewAppError(ErrTokenUnregistered.Code, ErrTokenUnregistered.Message, cause)
	case resp.StatusCode == http.StatusBadRequest:
		return types.NewAppError(types.ErrCodePushMessageRejected, "FCM rejected the message", cause)
	default:
		return types.NewAppError(types.ErrCodeUpstreamPush, fmt.Sprintf("FCM client error (%d)", resp.StatusCode), cause)
	}
}

// IsPermanentPushError reports whether retrying the same message can never
// succeed.
func IsPermanentPushError(err error) bool {
	return errors.Is(err, ErrTokenUnregistered) ||
		types.CodeOf(err) == types.ErrCodePushMessageRejected ||
		types.CodeOf(err) == types.ErrCodeValidationMissingField
}

var _ PushSender = (*FCMClient)(nil)
