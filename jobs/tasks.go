package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/grcdash/grcdash/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending notification emails.
	TaskTypeSendEmail = "mail:send"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	if payload.To == "" {
		return nil, errors.New("send email: recipient required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through a relay without authentication, e.g. a local
// Mailpit or the cluster's outbound relay.
type SMTPMailer struct {
	Addr string
	From string
}

// Send implements Mailer.
func (m SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(m.From, to, subject, body)
	if err := smtp.SendMail(m.Addr, nil, m.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.NewReplacer("\r", "", "\n", "").Replace(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// SendEmailJob processes TaskTypeSendEmail tasks.
type SendEmailJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle delivers one queued email. Malformed payloads are not retried.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Mailer == nil {
		return errors.New("send email: mailer not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.To == "" {
		return fmt.Errorf("send email: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskTypeSendEmail)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("to", payload.To))
	if err = j.Mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		logger.Error("send email", slog.Any("error", err))
		return err
	}
	j.metrics().AddItems(TaskTypeSendEmail, "sent", 1)
	logger.Info("email sent", slog.String("subject", payload.Subject))
	return nil
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

func (j *SendEmailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
