package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/grcdash/grcdash/internal/jobs"
	"github.com/grcdash/grcdash/internal/platform/filestore"
)

// TaskArtifactOrphanSweep removes stored files no record points at.
const TaskArtifactOrphanSweep = "artifact:orphan-sweep"

// SweptPrefixes are the file store prefixes owned by GRC records.
var SweptPrefixes = []string{"artifacts/", "evidence/"}

// SweepPayload optionally requests a dry run.
type SweepPayload struct {
	DryRun bool `json:"dry_run"`
}

// NewOrphanSweepTask constructs the sweep task.
func NewOrphanSweepTask(dryRun bool) (*asynq.Task, error) {
	body, err := json.Marshal(SweepPayload{DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArtifactOrphanSweep, body, asynq.Queue(QueueDefault), asynq.Unique(time.Hour)), nil
}

// FileReferences lists every file key still referenced by a record.
type FileReferences interface {
	ReferencedFiles(ctx context.Context) ([]string, error)
}

// OrphanSweepJob deletes unreferenced files older than Grace. Files left
// behind by failed deletes and department cascades end up here.
type OrphanSweepJob struct {
	Refs    FileReferences
	Store   filestore.Store
	Grace   time.Duration
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOrphanSweepJob wires dependencies for the sweep handler.
func NewOrphanSweepJob(refs FileReferences, store filestore.Store, grace time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrphanSweepJob {
	return &OrphanSweepJob{Refs: refs, Store: store, Grace: grace, Logger: logger, Metrics: metrics}
}

// SweepResult summarises one run.
type SweepResult struct {
	Scanned int
	Deleted []string
	Failed  int
}

// Handle processes sweep tasks.
func (j *OrphanSweepJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Refs == nil || j.Store == nil {
		return errors.New("orphan sweep: handler not configured")
	}
	var payload SweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("orphan sweep: bad payload: %w", asynq.SkipRetry)
		}
	}

	tracker := j.metrics().Track(TaskArtifactOrphanSweep)
	defer func() {
		err = tracker.End(err)
	}()

	res, err := j.Sweep(ctx, payload.DryRun)
	if err != nil {
		j.logger().Error("orphan sweep", slog.Any("error", err))
		return err
	}
	j.metrics().AddItems(TaskArtifactOrphanSweep, "scanned", res.Scanned)
	if !payload.DryRun {
		j.metrics().AddItems(TaskArtifactOrphanSweep, "deleted", len(res.Deleted))
	}
	j.logger().Info("completed orphan sweep",
		slog.Int("scanned", res.Scanned),
		slog.Int("orphans", len(res.Deleted)),
		slog.Int("failed", res.Failed),
		slog.Bool("dry_run", payload.DryRun))
	return nil
}

// Sweep finds orphans and, unless dryRun, deletes them. Individual delete
// failures are logged and counted; the next run retries them.
func (j *OrphanSweepJob) Sweep(ctx context.Context, dryRun bool) (SweepResult, error) {
	var res SweepResult
	refs, err := j.Refs.ReferencedFiles(ctx)
	if err != nil {
		return res, fmt.Errorf("load referenced files: %w", err)
	}
	referenced := make(map[string]struct{}, len(refs))
	for _, key := range refs {
		referenced[key] = struct{}{}
	}

	cutoff := j.now().Add(-j.Grace)
	for _, prefix := range SweptPrefixes {
		objects, err := j.Store.List(ctx, prefix)
		if err != nil {
			return res, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range objects {
			res.Scanned++
			if _, ok := referenced[obj.Key]; ok {
				continue
			}
			// uploads are stored before their row commits
			if !obj.ModTime.IsZero() && obj.ModTime.After(cutoff) {
				continue
			}
			if !dryRun {
				if err := j.Store.Delete(ctx, obj.Key); err != nil && !errors.Is(err, filestore.ErrNotExist) {
					res.Failed++
					j.logger().Warn("delete orphaned file", slog.String("key", obj.Key), slog.Any("error", err))
					continue
				}
			}
			res.Deleted = append(res.Deleted, obj.Key)
		}
	}
	return res, nil
}

func (j *OrphanSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskArtifactOrphanSweep))
	}
	return slog.Default().With(slog.String("job", TaskArtifactOrphanSweep))
}

func (j *OrphanSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OrphanSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
