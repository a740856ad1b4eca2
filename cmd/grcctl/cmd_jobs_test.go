package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcdash/grcdash/jobs"
)

type stubEnqueuer struct {
	digests int
	sweeps  []bool
	err     error
}

func (s *stubEnqueuer) EnqueuePOAMDigest(context.Context) (*asynq.TaskInfo, error) {
	s.digests++
	return &asynq.TaskInfo{ID: "d-1", Type: jobs.TaskPOAMOverdueDigest, Queue: jobs.QueueDefault}, s.err
}

func (s *stubEnqueuer) EnqueueOrphanSweep(_ context.Context, dryRun bool) (*asynq.TaskInfo, error) {
	s.sweeps = append(s.sweeps, dryRun)
	return &asynq.TaskInfo{ID: "s-1", Type: jobs.TaskArtifactOrphanSweep, Queue: jobs.QueueDefault}, s.err
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestTriggerDigest(t *testing.T) {
	client := &stubEnqueuer{}
	var out bytes.Buffer
	require.NoError(t, trigger(context.Background(), &out, client, jobDigest, false))
	assert.Equal(t, 1, client.digests)
	assert.Contains(t, out.String(), "enqueued poam:overdue-digest as d-1")
}

func TestTriggerSweepPassesDryRun(t *testing.T) {
	client := &stubEnqueuer{}
	require.NoError(t, trigger(context.Background(), &bytes.Buffer{}, client, jobSweep, true))
	assert.Equal(t, []bool{true}, client.sweeps)
}

func TestTriggerRejectsDryRunDigest(t *testing.T) {
	client := &stubEnqueuer{}
	err := trigger(context.Background(), &bytes.Buffer{}, client, jobDigest, true)
	require.Error(t, err)
	assert.Zero(t, client.digests)
}

func TestTriggerPropagatesEnqueueError(t *testing.T) {
	client := &stubEnqueuer{err: errors.New("redis down")}
	err := trigger(context.Background(), &bytes.Buffer{}, client, jobSweep, false)
	require.EqualError(t, err, "redis down")
}

func TestTriggerArgsValidated(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"jobs", "trigger", "reindex"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid argument "reindex"`)
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	inspector := stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}}
	require.NoError(t, printStats(&out, inspector))
	assert.Contains(t, out.String(), `"pending": 3`)
	assert.Contains(t, out.String(), `"retry": 1`)
}

func TestPrintStatsMissingQueue(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStats(&out, stubInspector{err: asynq.ErrQueueNotFound}))
	assert.Contains(t, out.String(), `"pending": 0`)
}
