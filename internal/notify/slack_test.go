package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hermes-soc/filesorter/internal/core"
)

type mockPoster struct {
	mock.Mock
}

func (m *mockPoster) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	args := m.Called(ctx, channelID)
	return args.String(0), args.String(1), args.Error(2)
}

var sorted = core.Notification{
	Action:            core.ActionMove,
	Path:              "hermes_SPANI_l0_2023040-000018_v01.bin",
	SourceBucket:      "swsoc-incoming",
	DestinationBucket: "hermes-spani",
	Environment:       core.Production,
}

func fastOptions() SlackOptions {
	return SlackOptions{Channel: "C123", RatePerSecond: 1000, Burst: 10, MaxFailures: 2, Cooldown: time.Hour}
}

func TestSlackNotifier_Notify(t *testing.T) {
	client := new(mockPoster)
	n := newSlackNotifier(client, fastOptions())

	client.On("PostMessageContext", mock.Anything, "C123").Return("C123", "1712405181.000100", nil).Once()
	require.NoError(t, n.Notify(context.Background(), sorted))
	client.AssertExpectations(t)
}

func TestSlackNotifier_BreakerOpens(t *testing.T) {
	client := new(mockPoster)
	n := newSlackNotifier(client, fastOptions())

	client.On("PostMessageContext", mock.Anything, "C123").Return("", "", errors.New("invalid_auth")).Twice()

	err := n.Notify(context.Background(), sorted)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Error(t, n.Notify(context.Background(), sorted))

	// the breaker is open now, Slack is not called again
	err = n.Notify(context.Background(), sorted)
	assert.ErrorIs(t, err, ErrUnavailable)
	client.AssertNumberOfCalls(t, "PostMessageContext", 2)
}

func TestSlackNotifier_RateLimitHonoursContext(t *testing.T) {
	client := new(mockPoster)
	n := newSlackNotifier(client, SlackOptions{Channel: "C123", RatePerSecond: 0.001, Burst: 1})

	client.On("PostMessageContext", mock.Anything, "C123").Return("C123", "1", nil).Once()
	require.NoError(t, n.Notify(context.Background(), sorted))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, n.Notify(ctx, sorted))
	client.AssertNumberOfCalls(t, "PostMessageContext", 1)
}

func TestMessage(t *testing.T) {
	assert.Equal(t,
		":file_folder: File Sorted - `hermes_SPANI_l0_2023040-000018_v01.bin` moved from `swsoc-incoming` to `hermes-spani`",
		Message(sorted))

	dup := sorted
	dup.Action = core.ActionQuarantineDuplicate
	dup.Environment = core.Development
	assert.Contains(t, Message(dup), "(Development) :warning: Duplicate File Quarantined")

	inv := sorted
	inv.Action = core.ActionQuarantineInvalid
	assert.Contains(t, Message(inv), "Invalid File Quarantined")
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.Notify(context.Background(), sorted))
}
