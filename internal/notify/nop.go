package notify

import (
	"context"

	"github.com/hermes-soc/filesorter/internal/core"
)

// NopNotifier drops notifications. It is used when no Slack token is configured.
type NopNotifier struct{}

var _ core.Notifier = NopNotifier{}

func (NopNotifier) Notify(ctx context.Context, n core.Notification) error {
	return nil
}
