package external

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"vaichover/internal/types"
)

// ---------------------------------------------------------------------------
// Stub Implementations
//
// Stubs let the API and the dispatch worker boot locally without provider
// credentials. They log every call and return predictable values.
// ---------------------------------------------------------------------------

// StubPushSender implements PushSender by logging the message it would have
// delivered. Used when APP_ENV=local and no FCM credentials are configured.
type StubPushSender struct {
	logger *slog.Logger
	seq    atomic.Int64
}

// NewStubPushSender creates a new StubPushSender.
func NewStubPushSender(logger *slog.Logger) *StubPushSender {
	return &StubPushSender{logger: logger}
}

func (s *StubPushSender) Send(ctx context.Context, msg types.PushMessage) (string, error) {
	n := s.seq.Add(1)
	s.logger.InfoContext(ctx, "stub: push Send called",
		"title", msg.Title,
		"link", msg.Link,
		"has_url", msg.URL != "",
	)
	return fmt.Sprintf("projects/stub/messages/%d", n), nil
}

// StubTokenDirectory implements TokenDirectory by logging calls. The terminal
// client uses it when no directory URL is reachable in local mode.
type StubTokenDirectory struct {
	logger *slog.Logger
}

// NewStubTokenDirectory creates a new StubTokenDirectory.
func NewStubTokenDirectory(logger *slog.Logger) *StubTokenDirectory {
	return &StubTokenDirectory{logger: logger}
}

func (s *StubTokenDirectory) Register(ctx context.Context, token string) error {
	s.logger.InfoContext(ctx, "stub: directory Register called", "token_len", len(token))
	return nil
}

func (s *StubTokenDirectory) Unregister(ctx context.Context, token string) error {
	s.logger.InfoContext(ctx, "stub: directory Unregister called", "token_len", len(token))
	return nil
}

var (
	_ PushSender     = (*StubPushSender)(nil)
	_ TokenDirectory = (*StubTokenDirectory)(nil)
)
