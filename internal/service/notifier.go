package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/pkg/jobs"
)

// Severity grades a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a fire-and-forget message for administrators.
type Notification struct {
	Title    string
	Body     string
	Severity Severity
}

// Notifier delivers notifications. Implementations never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, note Notification) {
	fields := []zap.Field{zap.String("title", note.Title), zap.String("body", note.Body)}
	switch note.Severity {
	case SeverityError:
		n.logger.Error("notification", fields...)
	case SeverityWarning:
		n.logger.Warn("notification", fields...)
	default:
		n.logger.Info("notification", append(fields, zap.String("severity", string(note.Severity)))...)
	}
}

type sendGridRequest struct {
	APIKey string
	Body   []byte
}

// sendFunc posts a mail body and returns the HTTP status.
type sendFunc func(request sendGridRequest) (int, error)

// SendGridConfig configures the e-mail notifier.
type SendGridConfig struct {
	APIKey     string
	FromName   string
	FromEmail  string
	Recipients []string
}

// SendGridNotifier mails notifications to administrators.
type SendGridNotifier struct {
	cfg    SendGridConfig
	send   sendFunc
	logger *zap.Logger
}

// NewSendGridNotifier constructs a SendGridNotifier.
func NewSendGridNotifier(cfg SendGridConfig, logger *zap.Logger) *SendGridNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridNotifier{cfg: cfg, send: sendViaSendGrid, logger: logger}
}

// Enabled reports whether an API key and at least one recipient are configured.
func (n *SendGridNotifier) Enabled() bool {
	return n != nil && n.cfg.APIKey != "" && len(n.cfg.Recipients) > 0
}

// Deliver sends the notification and returns transport errors, for use by a retrying queue.
func (n *SendGridNotifier) Deliver(_ context.Context, note Notification) error {
	if !n.Enabled() {
		return nil
	}
	message := sgmail.NewV3Mail()
	message.SetFrom(sgmail.NewEmail(n.cfg.FromName, n.cfg.FromEmail))
	message.Subject = fmt.Sprintf("[%s] %s", strings.ToUpper(string(note.Severity)), note.Title)

	personalization := sgmail.NewPersonalization()
	for _, addr := range n.cfg.Recipients {
		personalization.AddTos(sgmail.NewEmail("", addr))
	}
	message.AddPersonalizations(personalization)
	message.AddContent(sgmail.NewContent("text/plain", note.Body))

	status, err := n.send(sendGridRequest{APIKey: n.cfg.APIKey, Body: sgmail.GetRequestBody(message)})
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded with status %d", status)
	}
	return nil
}

// Notify implements Notifier by sending synchronously and logging failures.
func (n *SendGridNotifier) Notify(ctx context.Context, note Notification) {
	if err := n.Deliver(ctx, note); err != nil {
		n.logger.Warn("notification e-mail failed", zap.String("title", note.Title), zap.Error(err))
	}
}

func sendViaSendGrid(r sendGridRequest) (int, error) {
	request := sendgrid.GetRequest(r.APIKey, "/v3/mail/send", "https://api.sendgrid.com")
	request.Method = http.MethodPost
	request.Body = r.Body
	response, err := sendgrid.API(request)
	if err != nil {
		return 0, err
	}
	return response.StatusCode, nil
}

const notificationJobType = "notification"

// QueuedNotifier hands notifications to a background queue so callers never wait on delivery.
type QueuedNotifier struct {
	queue    *jobs.Queue
	fallback Notifier
	logger   *zap.Logger
}

// NewNotificationQueue builds the worker queue delivering through deliver.
func NewNotificationQueue(deliver func(ctx context.Context, n Notification) error, cfg jobs.QueueConfig) *jobs.Queue {
	return jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		note, ok := job.Payload.(Notification)
		if !ok {
			return nil
		}
		return deliver(ctx, note)
	}, cfg)
}

// NewQueuedNotifier wraps queue. The fallback always receives the notification too.
func NewQueuedNotifier(queue *jobs.Queue, fallback Notifier, logger *zap.Logger) *QueuedNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueuedNotifier{queue: queue, fallback: fallback, logger: logger}
}

// Notify implements Notifier.
func (n *QueuedNotifier) Notify(ctx context.Context, note Notification) {
	if n.fallback != nil {
		n.fallback.Notify(ctx, note)
	}
	if n.queue == nil {
		return
	}
	job := jobs.Job{ID: newID("notify"), Type: notificationJobType, Payload: note}
	if err := n.queue.TryEnqueue(job); err != nil {
		n.logger.Warn("notification dropped", zap.String("title", note.Title), zap.Error(err))
	}
}

func notify(ctx context.Context, notifier Notifier, title, body string, severity Severity) {
	if notifier == nil {
		return
	}
	notifier.Notify(ctx, Notification{Title: title, Body: body, Severity: severity})
}
