package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/storage"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
	mrcore "github.com/nemanja-m/wordfreq/pkg/core"
	"github.com/nemanja-m/wordfreq/pkg/mr"
)

const (
	defaultSplits      = 4
	defaultTaskTimeout = 2 * time.Minute
	cleanupTimeout     = 30 * time.Second
)

// TransitionListener is called with a snapshot of the job after every state
// change.
type TransitionListener func(job *core.Job)

type Option func(*Coordinator)

// WithSplits sets the default number of map tasks per job. When
// maxLinesPerSplit is positive, large inputs get more splits so that no split
// exceeds it.
func WithSplits(splits, maxLinesPerSplit int) Option {
	return func(c *Coordinator) {
		c.splits = splits
		c.maxLinesPerSplit = maxLinesPerSplit
	}
}

// WithTaskTimeout bounds every map and reduce task.
func WithTaskTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.taskTimeout = timeout
	}
}

func WithTransitionListener(listener TransitionListener) Option {
	return func(c *Coordinator) {
		c.listeners = append(c.listeners, listener)
	}
}

type SubmitOption func(*submitOptions)

type submitOptions struct {
	splits int
}

// WithSplitCount overrides the number of map tasks for one submission.
func WithSplitCount(splits int) SubmitOption {
	return func(o *submitOptions) {
		o.splits = splits
	}
}

// ErrShutdown is the cause of jobs cancelled by Coordinator.Shutdown.
var ErrShutdown = errors.New("coordinator is shutting down")

// Coordinator runs word-frequency jobs: it uploads the input, fans map tasks
// out to the cluster, shuffles their output, runs one reduce task and
// collects the result. Every job cleans up its blobs before Submit returns.
type Coordinator struct {
	store    storage.BlobStore
	cluster  core.Cluster
	jobStore core.JobStore
	logger   logging.Logger

	// Cancelled by Shutdown; the only way to stop a submitted job.
	ctx    context.Context
	cancel context.CancelCauseFunc

	splits           int
	maxLinesPerSplit int
	taskTimeout      time.Duration
	listeners        []TransitionListener
}

func NewCoordinator(
	store storage.BlobStore,
	cluster core.Cluster,
	jobStore core.JobStore,
	logger logging.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		store:       store,
		cluster:     cluster,
		jobStore:    jobStore,
		logger:      logger,
		splits:      defaultSplits,
		taskTimeout: defaultTaskTimeout,
	}
	c.ctx, c.cancel = context.WithCancelCause(context.Background())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Shutdown cancels every job still running. Their Submit calls return a
// *core.JobFailure once cleanup finished.
func (c *Coordinator) Shutdown() {
	c.cancel(ErrShutdown)
}

// Submit runs a job over text and blocks until it finished. Empty text is
// rejected with a *core.ValidationError before a job exists. A failed job
// yields a *core.JobFailure naming the stage it failed in.
//
// Once submitted a job runs to completion or failure: cancelling ctx does not
// stop it, only Shutdown does. Values carried by ctx are kept.
func (c *Coordinator) Submit(ctx context.Context, text string, opts ...SubmitOption) (*core.JobResult, error) {
	if text == "" {
		return nil, &core.ValidationError{Err: core.ErrEmptyInput}
	}
	if err := context.Cause(c.ctx); err != nil {
		return nil, err
	}

	so := submitOptions{splits: c.splits}
	for _, opt := range opts {
		opt(&so)
	}

	job := core.NewJob(text)
	if err := c.jobStore.SaveJob(job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	r := &jobRun{
		Coordinator: c,
		job:         job,
		logger:      c.logger.With("job_id", job.ID.String()),
	}
	r.logger.Info("Submitting job", "bytes", len(text))

	jobCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	defer cancel(nil)
	stop := context.AfterFunc(c.ctx, func() { cancel(context.Cause(c.ctx)) })
	defer stop()

	result, err := r.execute(jobCtx, so)
	r.cleanup(context.WithoutCancel(jobCtx))
	return result, err
}

// GetJob returns the job with id while it is in flight, or nil.
func (c *Coordinator) GetJob(id uuid.UUID) (*core.Job, error) {
	return c.jobStore.GetJobByID(id)
}

func (c *Coordinator) GetJobs(filter core.JobFilter) ([]*core.Job, int, error) {
	return c.jobStore.GetJobs(filter)
}

func (c *Coordinator) Health(ctx context.Context) core.ClusterHealth {
	return c.cluster.Health(ctx)
}

// jobRun is the state of one submission.
type jobRun struct {
	*Coordinator
	job    *core.Job
	logger logging.Logger

	mu      sync.Mutex
	created []string
}

func (r *jobRun) execute(ctx context.Context, so submitOptions) (*core.JobResult, error) {
	id := r.job.ID

	if err := r.put(ctx, core.InputName(id), []byte(r.job.Input)); err != nil {
		return nil, r.fail(core.StageUploading, err)
	}
	r.transition(core.JobStateUploaded)

	r.transition(core.JobStateMapping)
	mapOutputs, err := r.runMaps(ctx, so.splits)
	if err != nil {
		return nil, r.fail(core.StageMapping, err)
	}

	r.transition(core.JobStateShuffling)
	if err := r.shuffle(ctx, mapOutputs); err != nil {
		return nil, r.fail(core.StageShuffling, err)
	}

	r.transition(core.JobStateReducing)
	if err := r.runTask(ctx, task.TypeReduce, core.GroupedName(id), core.OutputName(id)); err != nil {
		return nil, r.fail(core.StageReducing, err)
	}
	r.track(core.OutputName(id))

	counts, err := r.collect(ctx)
	if err != nil {
		return nil, r.fail(core.StageCollecting, err)
	}
	r.transition(core.JobStateCollected)

	result := core.NewJobResult(id, counts)
	r.transition(core.JobStateCompleted)
	r.logger.Info("Job completed",
		"total_words", result.TotalWords,
		"unique_words", result.UniqueWords,
		"duration", r.job.Duration().String(),
	)
	return result, nil
}

// runMaps writes one split blob per map task, runs all map tasks at once and
// returns their output names in split order. The first failing task cancels
// the rest.
func (r *jobRun) runMaps(ctx context.Context, requested int) ([]string, error) {
	id := r.job.ID
	lines := mr.SplitLines(r.job.Input)
	splits := mr.Split(lines, mr.SplitCount(len(lines), requested, r.maxLinesPerSplit))

	r.job.NumSplits = len(splits)
	r.save()

	outputs := make([]string, len(splits))
	for _, split := range splits {
		if err := r.put(ctx, core.SplitName(id, split.Index), []byte(split.Text())); err != nil {
			return nil, err
		}
		outputs[split.Index] = core.MapOutputName(id, split.Index)
	}

	r.logger.Info("Dispatching map tasks", "splits", len(splits))

	g, gctx := errgroup.WithContext(ctx)
	for _, split := range splits {
		g.Go(func() error {
			if err := r.runTask(gctx, task.TypeMap, core.SplitName(id, split.Index), outputs[split.Index]); err != nil {
				return err
			}
			r.track(outputs[split.Index])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (r *jobRun) shuffle(ctx context.Context, mapOutputs []string) error {
	inputs := make([]io.Reader, 0, len(mapOutputs))
	for _, name := range mapOutputs {
		data, err := r.get(ctx, name)
		if err != nil {
			return err
		}
		inputs = append(inputs, bytes.NewReader(data))
	}

	var grouped bytes.Buffer
	stats, err := mr.ShuffleRecords(&grouped, inputs...)
	if err != nil {
		return fmt.Errorf("failed to shuffle map output: %w", err)
	}
	if stats.Skipped > 0 {
		r.logger.Warn("Dropped malformed map records", "skipped", stats.Skipped)
	}
	r.logger.Debug("Shuffled map output", "records", stats.Records)

	return r.put(ctx, core.GroupedName(r.job.ID), grouped.Bytes())
}

// collect parses the reducer output. Lines without exactly two fields are
// skipped; a count that is not an integer fails the job.
func (r *jobRun) collect(ctx context.Context) (map[string]int, error) {
	data, err := r.get(ctx, core.OutputName(r.job.ID))
	if err != nil {
		return nil, err
	}

	var badValue *mrcore.ParseError
	counts := make(map[string]int)
	err = mrcore.ScanRecords(bytes.NewReader(data), func(e mrcore.Emission) error {
		counts[e.Key] = e.Value
		return nil
	}, func(perr *mrcore.ParseError) {
		if errors.Is(perr, mrcore.ErrValue) && badValue == nil {
			badValue = perr
			return
		}
		r.logger.Debug("Skipping malformed output line", "error", perr.Error())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read job output: %w", err)
	}
	if badValue != nil {
		return nil, badValue
	}
	return counts, nil
}

func (r *jobRun) runTask(ctx context.Context, taskType task.Type, input, output string) error {
	spec := task.Spec{
		ID:     uuid.New(),
		JobID:  r.job.ID,
		Type:   taskType,
		Input:  input,
		Output: output,
	}

	taskCtx, cancel := context.WithTimeout(ctx, r.taskTimeout)
	defer cancel()

	start := time.Now()
	if err := r.cluster.RunTask(taskCtx, spec); err != nil {
		return core.NewTaskExecutionError(spec, err)
	}
	r.logger.Debug("Task finished",
		"task_id", spec.ID.String(),
		"type", string(taskType),
		"duration", time.Since(start).String(),
	)
	return nil
}

// cleanup deletes every blob the job created and sweeps whatever is left
// under its prefix. Errors are logged and never change the job outcome.
func (r *jobRun) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	r.mu.Lock()
	names := append([]string(nil), r.created...)
	r.mu.Unlock()

	for _, name := range names {
		if err := r.store.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("Failed to delete job blob", "name", name, "error", err)
		}
	}

	leftover, err := r.store.List(ctx, core.JobPrefix(r.job.ID))
	if err != nil {
		r.logger.Warn("Failed to list job blobs", "error", err)
	}
	for _, name := range leftover {
		if err := r.store.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("Failed to delete job blob", "name", name, "error", err)
		}
	}

	r.transition(core.JobStateCleanedUp)
	if err := r.jobStore.DeleteJob(r.job.ID); err != nil {
		r.logger.Warn("Failed to remove job record", "error", err)
	}
	r.logger.Debug("Job cleaned up", "blobs", len(names)+len(leftover))
}

func (r *jobRun) fail(stage core.Stage, err error) error {
	if ferr := r.job.Fail(stage, err); ferr != nil {
		r.logger.Error("Failed to mark job as failed", "error", ferr)
	}
	r.save()
	r.notify()
	r.logger.Error("Job failed", "stage", string(stage), "error", err)
	return &core.JobFailure{JobID: r.job.ID, Stage: stage, Err: err}
}

func (r *jobRun) transition(to core.JobState) {
	if err := r.job.Transition(to); err != nil {
		r.logger.Error("Rejected job transition", "state", string(to), "error", err)
		return
	}
	r.save()
	r.notify()
	r.logger.Debug("Job state changed", "state", string(to))
}

func (r *jobRun) save() {
	if err := r.jobStore.UpdateJob(r.job); err != nil {
		r.logger.Warn("Failed to update job record", "error", err)
	}
}

func (r *jobRun) notify() {
	for _, listener := range r.listeners {
		listener(r.job.Snapshot())
	}
}

func (r *jobRun) put(ctx context.Context, name string, data []byte) error {
	r.track(name)
	if err := r.store.Put(ctx, name, data); err != nil {
		return &core.StorageError{Op: "put", Name: name, Err: err}
	}
	return nil
}

func (r *jobRun) get(ctx context.Context, name string) ([]byte, error) {
	data, err := r.store.Get(ctx, name)
	if err != nil {
		return nil, &core.StorageError{Op: "get", Name: name, Err: err}
	}
	return data, nil
}

func (r *jobRun) track(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, name)
}
