package notifier

import "context"

// TextNotifier sends a pre-rendered text message somewhere a human reads it.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}
