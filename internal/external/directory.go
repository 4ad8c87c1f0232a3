package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vaichover/internal/types"
)

type directoryRequest struct {
	Token string `json:"token"`
}

type directoryResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// DirectoryClient implements TokenDirectory over the register-token endpoint.
type DirectoryClient struct {
	base     *BaseClient
	endpoint string
	logger   *slog.Logger
}

// NewDirectoryClient creates a DirectoryClient for the given endpoint URL
// (e.g. "https://host/api/register-token").
func NewDirectoryClient(httpClient *http.Client, endpoint, userAgent string, logger *slog.Logger) *DirectoryClient {
	base := NewBaseClient(
		httpClient,
		"token-directory",
		RetryPolicy{MaxRetries: 1, MinWait: 500 * time.Millisecond, MaxWait: 2 * time.Second},
		userAgent,
	)
	return NewDirectoryClientWithBase(base, endpoint, logger)
}

// NewDirectoryClientWithBase creates a DirectoryClient with a pre-configured
// BaseClient.
func NewDirectoryClientWithBase(base *BaseClient, endpoint string, logger *slog.Logger) *DirectoryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryClient{base: base, endpoint: endpoint, logger: logger}
}

// Register upserts token in the directory.
func (c *DirectoryClient) Register(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, token)
}

// Unregister removes token from the directory.
func (c *DirectoryClient) Unregister(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodDelete, token)
}

func (c *DirectoryClient) call(ctx context.Context, method, token string) error {
	body, err := json.Marshal(directoryRequest{Token: token})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize directory request", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create directory request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return wrapUpstream("directory", method, types.ErrCodeUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed directoryResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= 400 || !parsed.OK {
		c.logger.WarnContext(ctx, "token directory rejected request",
			"method", method,
			"status_code", resp.StatusCode,
			"error", parsed.Error,
			"details", parsed.Details,
		)
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("directory %s returned %d", method, resp.StatusCode),
			nil,
			map[string]any{"error": parsed.Error, "details": parsed.Details},
		)
	}
	return nil
}

var _ TokenDirectory = (*DirectoryClient)(nil)
