package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/wordfreq/internal/coordinator/cluster/local"
	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
	jobstorage "github.com/nemanja-m/wordfreq/internal/coordinator/storage"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/storage"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
	workerservice "github.com/nemanja-m/wordfreq/internal/worker/service"
	"github.com/nemanja-m/wordfreq/pkg/wordcount"
)

// mockLogger is a no-op logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Info(msg string, args ...any) {}
func (m *mockLogger) Warn(msg string, args ...any) {}
func (m *mockLogger) Error(msg string, args ...any) {}
func (m *mockLogger) Fatal(msg string, args ...any) {}
func (m *mockLogger) With(args ...any) logging.Logger { return m }

// mockCluster runs tasks through runFunc, falling back to next.
type mockCluster struct {
	next    core.Cluster
	runFunc func(ctx context.Context, spec task.Spec) (handled bool, err error)
}

func (m *mockCluster) RunTask(ctx context.Context, spec task.Spec) error {
	if m.runFunc != nil {
		if handled, err := m.runFunc(ctx, spec); handled {
			return err
		}
	}
	return m.next.RunTask(ctx, spec)
}

func (m *mockCluster) Health(ctx context.Context) core.ClusterHealth {
	return m.next.Health(ctx)
}

// faultyStore fails Put or Delete for names matching the configured
// substrings.
type faultyStore struct {
	*storage.MemoryStore
	failPut    string
	failDelete string
}

func (s *faultyStore) Put(ctx context.Context, name string, data []byte) error {
	if s.failPut != "" && strings.Contains(name, s.failPut) {
		return errors.New("no space left on device")
	}
	return s.MemoryStore.Put(ctx, name, data)
}

func (s *faultyStore) Delete(ctx context.Context, name string) error {
	if s.failDelete != "" && strings.Contains(name, s.failDelete) {
		return errors.New("permission denied")
	}
	return s.MemoryStore.Delete(ctx, name)
}

type testEnv struct {
	store       *faultyStore
	cluster     *mockCluster
	jobStore    *jobstorage.InMemoryJobStore
	coordinator *Coordinator

	mu     sync.Mutex
	states []core.JobState
}

func (e *testEnv) recordedStates() []core.JobState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.JobState(nil), e.states...)
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	logger := &mockLogger{}
	env := &testEnv{
		store:    &faultyStore{MemoryStore: storage.NewMemoryStore()},
		jobStore: jobstorage.NewInMemoryJobStore(),
	}

	worker := workerservice.NewWorkerService(workerservice.NewStoreExecutor(env.store, logger), logger)
	localCluster := local.New(4, worker, logger)
	t.Cleanup(localCluster.Close)
	env.cluster = &mockCluster{next: localCluster}

	opts = append([]Option{
		WithTransitionListener(func(job *core.Job) {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.states = append(env.states, job.State)
		}),
	}, opts...)
	env.coordinator = NewCoordinator(env.store, env.cluster, env.jobStore, logger, opts...)
	return env
}

func requireNoJobs(t *testing.T, env *testEnv) {
	t.Helper()
	require.Zero(t, env.store.Len(), "blobs left behind")
	jobs, total, err := env.jobStore.GetJobs(core.JobFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, jobs)
}

func TestSubmit_CountsWords(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "plain words", text: "hello world hello hadoop"},
		{name: "case and punctuation", text: "Hello, World! Hello Hadoop."},
		{name: "multiple lines", text: "hello\nworld hello\n\nhadoop\n"},
	}

	want := map[string]int{"hello": 2, "world": 1, "hadoop": 1}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			result, err := env.coordinator.Submit(context.Background(), tt.text)
			require.NoError(t, err)
			require.Equal(t, want, result.Counts)
			require.Equal(t, 4, result.TotalWords)
			require.Equal(t, 3, result.UniqueWords)

			requireNoJobs(t, env)
		})
	}
}

func TestSubmit_EmptyInput(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.coordinator.Submit(context.Background(), "")
	require.Nil(t, result)

	var validationErr *core.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.ErrorIs(t, err, core.ErrEmptyInput)

	require.Empty(t, env.recordedStates())
	requireNoJobs(t, env)
}

func TestSubmit_NoWords(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.coordinator.Submit(context.Background(), "... !!! ---\n\n")
	require.NoError(t, err)
	require.Empty(t, result.Counts)
	require.Zero(t, result.TotalWords)
	require.Zero(t, result.UniqueWords)
}

func TestSubmit_StateHistory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coordinator.Submit(context.Background(), "hello world")
	require.NoError(t, err)

	require.Equal(t, []core.JobState{
		core.JobStateUploaded,
		core.JobStateMapping,
		core.JobStateShuffling,
		core.JobStateReducing,
		core.JobStateCollected,
		core.JobStateCompleted,
		core.JobStateCleanedUp,
	}, env.recordedStates())
}

func TestSubmit_DeterministicAcrossSplitCounts(t *testing.T) {
	var lines []string
	for i := range 40 {
		lines = append(lines, fmt.Sprintf("Line %d: the quick brown fox, the lazy dog; fox %d", i, i%7))
	}
	text := strings.Join(lines, "\n")

	env := newTestEnv(t)
	baseline, err := env.coordinator.Submit(context.Background(), text, WithSplitCount(1))
	require.NoError(t, err)

	expectedTotal := len(wordcount.NewTokenizer().Tokens(text))
	require.Equal(t, expectedTotal, baseline.TotalWords)

	for _, k := range []int{2, 3, 5, 8, 40, 100} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			result, err := env.coordinator.Submit(context.Background(), text, WithSplitCount(k))
			require.NoError(t, err)
			require.Equal(t, baseline.Counts, result.Counts)
			require.Equal(t, expectedTotal, result.TotalWords)
		})
	}
	requireNoJobs(t, env)
}

func TestSubmit_MaxLinesPerSplit(t *testing.T) {
	var mapTasks sync.Map
	env := newTestEnv(t, WithSplits(1, 2))
	env.cluster.runFunc = func(ctx context.Context, spec task.Spec) (bool, error) {
		if spec.Type == task.TypeMap {
			mapTasks.Store(spec.Input, true)
		}
		return false, nil
	}

	result, err := env.coordinator.Submit(context.Background(), "a\nb\nc\nd\ne")
	require.NoError(t, err)
	require.Equal(t, 5, result.TotalWords)

	count := 0
	mapTasks.Range(func(_, _ any) bool { count++; return true })
	require.Equal(t, 3, count)
}

func TestSubmit_MapTaskFailure(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.runFunc = func(ctx context.Context, spec task.Spec) (bool, error) {
		if spec.Type != task.TypeMap {
			return false, nil
		}
		if strings.HasSuffix(spec.Input, "split-00001") {
			return true, &task.ExitError{Code: 1, Stderr: "mapper crashed"}
		}
		return true, env.store.Put(ctx, spec.Output, nil)
	}

	text := "one\ntwo\nthree\nfour"
	result, err := env.coordinator.Submit(context.Background(), text, WithSplitCount(4))
	require.Nil(t, result)

	var failure *core.JobFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, core.StageMapping, failure.Stage)

	var taskErr *core.TaskExecutionError
	require.ErrorAs(t, err, &taskErr)
	require.Equal(t, task.TypeMap, taskErr.Type)
	require.Equal(t, 1, taskErr.Code)
	require.Equal(t, "mapper crashed", taskErr.Stderr)

	states := env.recordedStates()
	require.Equal(t, []core.JobState{
		core.JobStateUploaded,
		core.JobStateMapping,
		core.JobStateFailed,
		core.JobStateCleanedUp,
	}, states)
	requireNoJobs(t, env)
}

func TestSubmit_UploadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failPut = "/input"

	_, err := env.coordinator.Submit(context.Background(), "hello")

	var failure *core.JobFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, core.StageUploading, failure.Stage)

	var storageErr *core.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "put", storageErr.Op)

	require.Equal(t, []core.JobState{core.JobStateFailed, core.JobStateCleanedUp}, env.recordedStates())
	requireNoJobs(t, env)
}

func TestSubmit_ShuffleFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failPut = "/shuffle/"

	_, err := env.coordinator.Submit(context.Background(), "hello world")

	var failure *core.JobFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, core.StageShuffling, failure.Stage)
	requireNoJobs(t, env)
}

func TestSubmit_ReduceTimeout(t *testing.T) {
	env := newTestEnv(t, WithTaskTimeout(30*time.Millisecond))
	env.cluster.runFunc = func(ctx context.Context, spec task.Spec) (bool, error) {
		if spec.Type != task.TypeReduce {
			return false, nil
		}
		<-ctx.Done()
		return true, ctx.Err()
	}

	_, err := env.coordinator.Submit(context.Background(), "hello world")

	var failure *core.JobFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, core.StageReducing, failure.Stage)

	var taskErr *core.TaskExecutionError
	require.ErrorAs(t, err, &taskErr)
	require.True(t, taskErr.Timeout())
	requireNoJobs(t, env)
}

func TestSubmit_CollectSkipsMalformedLines(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.runFunc = func(ctx context.Context, spec task.Spec) (bool, error) {
		if spec.Type != task.TypeReduce {
			return false, nil
		}
		return true, env.store.Put(ctx, spec.Output, []byte("hello\t2\nbroken line\nworld\t1\n"))
	}

	result, err := env.coordinator.Submit(context.Background(), "hello world hello")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"hello": 2, "world": 1}, result.Counts)
}

func TestSubmit_CollectRejectsNonIntegerCount(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.runFunc = func(ctx context.Context, spec task.Spec) (bool, error) {
		if spec.Type != task.TypeReduce {
			return false, nil
		}
		return true, env.store.Put(ctx, spec.Output, []byte("hello\ttwo\n"))
	}

	_, err := env.coordinator.Submit(context.Background(), "hello hello")

	var failure *core.JobFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, core.StageCollecting, failure.Stage)
	requireNoJobs(t, env)
}

func TestSubmit_CleanupFailureDoesNotFailJob(t *testing.T) {
	env := newTestEnv(t)
	env.store.failDelete = "/input"

	result, err := env.coordinator.Submit(context.Background(), "hello world")
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalWords)

	// Only the blob that could not be deleted is left.
	names, err := env.store.List(context.Background(), "jobs/")
	require.NoError(t, err)
	require.Len(t, names, 1)
	require.True(t, strings.HasSuffix(names[0], "/input"))
}

func TestSubmit_JobVisibleWhileRunning(t *testing.T) {
	env := newTestEnv(t)

	var seen *core.Job
	env.cluster.runFunc = func(ctx context.Context, spec task.Spec) (bool, error) {
		if spec.Type == task.TypeReduce {
			job, err := env.coordinator.GetJob(spec.JobID)
			if err != nil {
				return true, err
			}
			seen = job
		}
		return false, nil
	}

	result, err := env.coordinator.Submit(context.Background(), "hello")
	require.NoError(t, err)

	require.NotNil(t, seen)
	require.Equal(t, core.JobStateReducing, seen.State)
	require.Equal(t, 1, seen.NumSplits)

	job, err := env.coordinator.GetJob(result.JobID)
	require.NoError(t, err)
	require.Nil(t, job)
}

func TestSubmit_ConcurrentJobs(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Go(func() {
			word := fmt.Sprintf("word%d", i)
			text := strings.Repeat(word+" shared\n", i+1)
			result, err := env.coordinator.Submit(context.Background(), text, WithSplitCount(3))
			if err != nil {
				errs <- err
				return
			}
			if result.Counts[word] != i+1 || result.Counts["shared"] != i+1 {
				errs <- fmt.Errorf("job %d: unexpected counts %v", i, result.Counts)
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	requireNoJobs(t, env)
}

func TestCoordinator_Health(t *testing.T) {
	env := newTestEnv(t)

	health := env.coordinator.Health(context.Background())
	require.True(t, health.Healthy)
	require.Len(t, health.Workers, 4)
}

func TestSubmit_CallerCancellationDoesNotStopJob(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.cluster.runFunc = func(taskCtx context.Context, spec task.Spec) (bool, error) {
		cancel()
		if err := taskCtx.Err(); err != nil {
			return true, fmt.Errorf("task context cancelled with caller: %w", err)
		}
		return false, nil
	}

	result, err := env.coordinator.Submit(ctx, "hello world\nhello\n", WithSplitCount(2))
	require.NoError(t, err)
	require.Equal(t, map[string]int{"hello": 2, "world": 1}, result.Counts)
	require.Error(t, ctx.Err())
	requireNoJobs(t, env)
}

func TestCoordinator_Shutdown(t *testing.T) {
	env := newTestEnv(t)

	env.cluster.runFunc = func(taskCtx context.Context, spec task.Spec) (bool, error) {
		if spec.Type != task.TypeMap {
			return false, nil
		}
		env.coordinator.Shutdown()
		select {
		case <-taskCtx.Done():
			return true, taskCtx.Err()
		case <-time.After(5 * time.Second):
			return true, errors.New("task not cancelled by shutdown")
		}
	}

	_, err := env.coordinator.Submit(context.Background(), "hello world\n")
	var failure *core.JobFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, core.StageMapping, failure.Stage)
	require.ErrorIs(t, err, context.Canceled)
	requireNoJobs(t, env)

	_, err = env.coordinator.Submit(context.Background(), "hello again")
	require.ErrorIs(t, err, ErrShutdown)
}
