package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

// ErrUnavailable is returned while the breaker rejects calls after repeated Slack failures.
var ErrUnavailable = errors.New("slack notifications unavailable")

// poster is the subset of the Slack client the notifier uses.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackOptions configures a SlackNotifier.
//
// Fields:
//   - Channel: The channel id messages are posted to.
//   - RatePerSecond: Maximum messages per second; 1 when zero.
//   - Burst: Limiter burst; 1 when zero.
//   - MaxFailures: Consecutive failures that open the breaker; 3 when zero.
//   - Cooldown: How long the breaker stays open before probing Slack again; 1 minute when zero.
type SlackOptions struct {
	Channel       string
	RatePerSecond float64
	Burst         int
	MaxFailures   uint32
	Cooldown      time.Duration
}

// SlackNotifier posts routing notifications to a Slack channel.
type SlackNotifier struct {
	client  poster
	channel string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
}

var _ core.Notifier = (*SlackNotifier)(nil)

// NewSlack creates a notifier posting with the given bot token.
func NewSlack(token string, opts SlackOptions) *SlackNotifier {
	return newSlackNotifier(slack.New(token), opts)
}

func newSlackNotifier(client poster, opts SlackOptions) *SlackNotifier {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 3
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = time.Minute
	}

	maxFailures := opts.MaxFailures
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "slack",
		MaxRequests: 1,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logx.As().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Notification breaker state changed")
		},
	})

	return &SlackNotifier{
		client:  client,
		channel: opts.Channel,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		breaker: cb,
	}
}

// Notify posts a message for n. It waits for the rate limiter and fails fast while the breaker is open.
func (s *SlackNotifier) Notify(ctx context.Context, n core.Notification) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}

	ts, err := s.breaker.Execute(func() (string, error) {
		_, ts, err := s.client.PostMessageContext(ctx, s.channel,
			slack.MsgOptionText(Message(n), false),
		)
		return ts, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return fmt.Errorf("failed to post slack message: %w", err)
	}

	logx.As().Debug().
		Str("channel", s.channel).
		Str("ts", ts).
		Str("path", n.Path).
		Msg("Notification posted")
	return nil
}

// Message renders the text posted for n.
func Message(n core.Notification) string {
	var title string
	switch n.Action {
	case core.ActionMove:
		title = ":file_folder: File Sorted"
	case core.ActionQuarantineDuplicate:
		title = ":warning: Duplicate File Quarantined"
	case core.ActionQuarantineInvalid:
		title = ":warning: Invalid File Quarantined"
	default:
		title = fmt.Sprintf(":grey_question: File %s", n.Action)
	}

	msg := fmt.Sprintf("%s - `%s` moved from `%s` to `%s`", title, n.Path, n.SourceBucket, n.DestinationBucket)
	if n.Environment == core.Development {
		msg = "(Development) " + msg
	}
	return msg
}
