package dashboard

import (
	"context"
	"fmt"
	"io"

	"vaichover/internal/alerts"
)

// Notifier displays an emitted alert on the local platform.
type Notifier interface {
	Notify(ctx context.Context, n alerts.Notification) error
}

// WriterNotifier prints alerts to a terminal or log stream.
type WriterNotifier struct {
	Out io.Writer
}

func (w WriterNotifier) Notify(_ context.Context, n alerts.Notification) error {
	_, err := fmt.Fprintf(w.Out, "\n🔔 %s\n   %s\n", n.Title, n.Body)
	return err
}

var _ Notifier = WriterNotifier{}
