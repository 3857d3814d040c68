package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusStep struct {
	result models.PaymentStatusResult
	err    error
}

// scriptedChecker replays a status sequence, repeating the last step
type scriptedChecker struct {
	mu       sync.Mutex
	steps    []statusStep
	attempts []int
}

func (c *scriptedChecker) CheckStatus(ctx context.Context, paymentID string, attempt int) (models.PaymentStatusResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := len(c.attempts)
	c.attempts = append(c.attempts, attempt)
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	step := c.steps[i]
	step.result.PaymentID = paymentID
	return step.result, step.err
}

func (c *scriptedChecker) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attempts)
}

func pending() statusStep {
	return statusStep{result: models.PaymentStatusResult{Status: models.PaymentPending}}
}

func TestLinkPoller_LinkAppears(t *testing.T) {
	checker := &scriptedChecker{steps: []statusStep{
		pending(), pending(), pending(),
		{result: models.PaymentStatusResult{Status: models.PaymentPending, Link: "https://pay.example/p1"}},
	}}
	poller := NewLinkPoller(checker, 10, time.Millisecond, quietLogger())

	out, err := poller.Run(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, PollLinkReady, out.State)
	assert.Equal(t, "https://pay.example/p1", out.Link)
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, []int{1, 2, 3, 4}, checker.attempts)
}

func TestLinkPoller_Exhausted(t *testing.T) {
	checker := &scriptedChecker{steps: []statusStep{pending()}}
	poller := NewLinkPoller(checker, 3, time.Millisecond, quietLogger())

	out, err := poller.Run(context.Background(), "p1")
	assert.Equal(t, PollExhausted, out.State)
	assert.Equal(t, 3, checker.calls())

	var unavailable *PaymentUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "p1", unavailable.PaymentID)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.ErrorIs(t, err, apperr.ErrPaymentGateway)
}

func TestLinkPoller_GatewayRejects(t *testing.T) {
	checker := &scriptedChecker{steps: []statusStep{
		pending(),
		{result: models.PaymentStatusResult{Status: models.PaymentRejected}},
	}}
	poller := NewLinkPoller(checker, 10, time.Millisecond, quietLogger())

	out, err := poller.Run(context.Background(), "p1")
	assert.Equal(t, PollGatewayFailed, out.State)
	assert.Equal(t, models.PaymentRejected, out.Status)
	assert.Equal(t, 2, checker.calls())
	assert.ErrorIs(t, err, apperr.ErrPaymentGateway)
}

func TestLinkPoller_TransportErrorsRetried(t *testing.T) {
	checker := &scriptedChecker{steps: []statusStep{
		{result: models.PaymentStatusResult{Status: models.PaymentError}, err: errors.New("connection reset")},
		{result: models.PaymentStatusResult{Status: models.PaymentPending, Link: "https://pay.example/p1"}},
	}}
	poller := NewLinkPoller(checker, 5, time.Millisecond, quietLogger())

	out, err := poller.Run(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, PollLinkReady, out.State)
	assert.Equal(t, 2, out.Attempts)
}

func TestLinkPoller_Cancelled(t *testing.T) {
	checker := &scriptedChecker{steps: []statusStep{pending()}}
	poller := NewLinkPoller(checker, 100, time.Hour, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for checker.calls() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	out, err := poller.Run(ctx, "p1")
	assert.Equal(t, PollCancelled, out.State)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, checker.calls())
}

func TestNewLinkPoller_Defaults(t *testing.T) {
	poller := NewLinkPoller(&scriptedChecker{}, 0, 0, quietLogger())
	assert.Equal(t, DefaultPollAttempts, poller.MaxAttempts)
	assert.Equal(t, DefaultPollInterval, poller.Interval)
}
