package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/grcdash/grcdash/internal/grc"
	jobmetrics "github.com/grcdash/grcdash/internal/jobs"
)

// TaskPOAMOverdueDigest mails each assignee a list of their overdue PO&AMs.
const TaskPOAMOverdueDigest = "poam:overdue-digest"

// DigestPayload carries scheduling metadata.
type DigestPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewPOAMDigestTask constructs the digest task.
func NewPOAMDigestTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DigestPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPOAMOverdueDigest, body, asynq.Queue(QueueDefault), asynq.Unique(time.Hour)), nil
}

// OverdueSource lists active PO&AMs past their due date.
type OverdueSource interface {
	OverdueIssues(ctx context.Context) ([]grc.Issue, error)
}

// EmailEnqueuer queues a single email.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// digestRetention keeps finished digest mails, and so their task ids, long
// enough that a retried run on the same day cannot queue them twice.
const digestRetention = 36 * time.Hour

// digestTaskID names the mail for one recipient on one day.
func digestTaskID(day time.Time, email string) string {
	return fmt.Sprintf("poam-digest:%s:%s", day.Format("2006-01-02"), strings.ToLower(email))
}

// POAMDigestJob groups overdue PO&AMs by assignee and queues one email each.
type POAMDigestJob struct {
	Issues  OverdueSource
	Mail    EmailEnqueuer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPOAMDigestJob wires dependencies for the digest handler.
func NewPOAMDigestJob(issues OverdueSource, mail EmailEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *POAMDigestJob {
	return &POAMDigestJob{Issues: issues, Mail: mail, Logger: logger, Metrics: metrics}
}

// Handle processes digest tasks.
func (j *POAMDigestJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Issues == nil || j.Mail == nil {
		return errors.New("poam digest: handler not configured")
	}
	var payload DigestPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("poam digest: bad payload: %w", asynq.SkipRetry)
		}
	}

	tracker := j.metrics().Track(TaskPOAMOverdueDigest)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger()
	logger.Info("starting overdue digest", slog.Time("scheduled_for", payload.ScheduledFor))

	issues, err := j.Issues.OverdueIssues(ctx)
	if err != nil {
		logger.Error("load overdue issues", slog.Any("error", err))
		return err
	}
	digests, unassigned := groupByAssignee(issues)
	if unassigned > 0 {
		logger.Warn("overdue issues without a reachable assignee", slog.Int("count", unassigned))
	}

	now := j.now()
	today := now.Format("Jan 02, 2006")
	skipped := 0
	for _, d := range digests {
		_, err = j.Mail.EnqueueSendEmail(ctx, d.email(today),
			asynq.TaskID(digestTaskID(now, d.Email)), asynq.Retention(digestRetention))
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			skipped++
			logger.Info("digest already queued today", slog.String("to", d.Email))
			continue
		}
		if err != nil {
			logger.Error("enqueue digest", slog.String("to", d.Email), slog.Any("error", err))
			return err
		}
	}
	j.metrics().AddItems(TaskPOAMOverdueDigest, "overdue", len(issues))
	j.metrics().AddItems(TaskPOAMOverdueDigest, "digests", len(digests)-skipped)
	logger.Info("completed overdue digest", slog.Int("issues", len(issues)), slog.Int("digests", len(digests)), slog.Int("already_queued", skipped))
	return nil
}

type digest struct {
	Email  string
	Name   string
	Issues []grc.Issue
}

func (d digest) email(today string) SendEmailPayload {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", d.Name)
	fmt.Fprintf(&b, "The following PO&AMs assigned to you are past their due date as of %s:\n\n", today)
	for _, i := range d.Issues {
		fmt.Fprintf(&b, "- [%s] %s (due %s, %s)\n", i.Priority.Label(), i.Title, i.DueDate.Format("Jan 02, 2006"), i.DepartmentName)
	}
	b.WriteString("\nPlease update their status or resolution notes in the GRC dashboard.\n")
	subject := fmt.Sprintf("%d overdue PO&AM", len(d.Issues))
	if len(d.Issues) != 1 {
		subject += "s"
	}
	return SendEmailPayload{To: d.Email, Subject: subject, Body: b.String()}
}

// groupByAssignee buckets issues per assignee email, most urgent first.
// Issues without an assignee email are counted but skipped.
func groupByAssignee(issues []grc.Issue) ([]digest, int) {
	byEmail := map[string]*digest{}
	var order []string
	unassigned := 0
	for _, i := range issues {
		if i.AssignedToEmail == "" || i.DueDate == nil {
			unassigned++
			continue
		}
		d, ok := byEmail[i.AssignedToEmail]
		if !ok {
			d = &digest{Email: i.AssignedToEmail, Name: i.AssignedToName}
			byEmail[i.AssignedToEmail] = d
			order = append(order, i.AssignedToEmail)
		}
		d.Issues = append(d.Issues, i)
	}
	sort.Strings(order)
	out := make([]digest, 0, len(order))
	for _, email := range order {
		d := byEmail[email]
		sort.SliceStable(d.Issues, func(a, b int) bool {
			return d.Issues[a].DueDate.Before(*d.Issues[b].DueDate)
		})
		out = append(out, *d)
	}
	return out, unassigned
}

func (j *POAMDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPOAMOverdueDigest))
	}
	return slog.Default().With(slog.String("job", TaskPOAMOverdueDigest))
}

func (j *POAMDigestJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *POAMDigestJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
