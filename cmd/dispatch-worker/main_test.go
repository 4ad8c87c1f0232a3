package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"vaichover/internal/external"
	"vaichover/internal/notifications"
)

func localHandler() (*notifications.Handler, *slog.Logger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := notifications.NewHandler(notifications.WorkerConfig{
		Dispatcher: notifications.NewDispatcher(external.NewStubPushSender(logger), nil, nil, nil),
		AppURL:     "https://vaichover.vercel.app",
	})
	return h, logger
}

func TestRunLocal(t *testing.T) {
	h, logger := localHandler()
	event := `{"Records":[{"messageId":"1","body":"{\"id\":\"d1\",\"token\":\"tok-1\",\"title\":\"Chuva\"}"}]}`

	if err := runLocal(context.Background(), h, strings.NewReader(event), logger); err != nil {
		t.Fatalf("runLocal: %v", err)
	}
}

func TestRunLocal_RejectsBadInput(t *testing.T) {
	h, logger := localHandler()

	for name, in := range map[string]string{"empty": "", "not json": "records"} {
		t.Run(name, func(t *testing.T) {
			if err := runLocal(context.Background(), h, strings.NewReader(in), logger); err == nil {
				t.Error("expected error")
			}
		})
	}
}
