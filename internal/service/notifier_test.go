package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/music-school-api/pkg/jobs"
)

func TestSendGridDeliverBuildsMail(t *testing.T) {
	var captured sendGridRequest
	n := NewSendGridNotifier(SendGridConfig{
		APIKey:     "SG.test",
		FromName:   "Music School",
		FromEmail:  "office@school.test",
		Recipients: []string{"admin@school.test"},
	}, nil)
	n.send = func(r sendGridRequest) (int, error) {
		captured = r
		return 202, nil
	}

	require.NoError(t, n.Deliver(context.Background(), Notification{Title: "Roster imported", Body: "3 lines", Severity: SeverityWarning}))
	assert.Equal(t, "SG.test", captured.APIKey)

	var body struct {
		Subject string `json:"subject"`
		From    struct {
			Email string `json:"email"`
		} `json:"from"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &body))
	assert.Equal(t, "[WARNING] Roster imported", body.Subject)
	assert.Equal(t, "office@school.test", body.From.Email)
}

func TestSendGridDeliverReportsFailures(t *testing.T) {
	n := NewSendGridNotifier(SendGridConfig{APIKey: "SG.test", Recipients: []string{"admin@school.test"}}, nil)
	n.send = func(sendGridRequest) (int, error) { return 401, nil }
	require.Error(t, n.Deliver(context.Background(), Notification{Title: "x"}))

	n.send = func(sendGridRequest) (int, error) { return 0, errors.New("dial tcp") }
	require.Error(t, n.Deliver(context.Background(), Notification{Title: "x"}))

	disabled := NewSendGridNotifier(SendGridConfig{}, nil)
	assert.False(t, disabled.Enabled())
	require.NoError(t, disabled.Deliver(context.Background(), Notification{Title: "x"}))
}

func TestQueuedNotifierDeliversInBackground(t *testing.T) {
	var (
		mu        sync.Mutex
		delivered []Notification
	)
	queue := NewNotificationQueue(func(_ context.Context, n Notification) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, n)
		return nil
	}, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()

	fallback := &recordingNotifier{}
	notifier := NewQueuedNotifier(queue, fallback, nil)
	notifier.Notify(context.Background(), Notification{Title: "Leave approved", Severity: SeveritySuccess})

	assert.Equal(t, 1, fallback.count(SeveritySuccess))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, time.Second, 5*time.Millisecond)
}
