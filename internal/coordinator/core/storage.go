package core

import (
	"context"

	"github.com/google/uuid"

	"github.com/nemanja-m/wordfreq/internal/shared/task"
)

// JobStore tracks the jobs currently in flight.
type JobStore interface {
	SaveJob(job *Job) error
	UpdateJob(job *Job) error
	GetJobByID(id uuid.UUID) (*Job, error)
	GetJobs(filter JobFilter) ([]*Job, int, error)
	DeleteJob(id uuid.UUID) error
}

// Cluster runs map and reduce tasks. RunTask blocks until the task finished;
// a failed task yields a *task.ExitError, a task past its deadline yields an
// error wrapping context.DeadlineExceeded.
type Cluster interface {
	RunTask(ctx context.Context, spec task.Spec) error
	Health(ctx context.Context) ClusterHealth
}

type ClusterHealth struct {
	Healthy bool
	Workers []WorkerHealth
}

type WorkerHealth struct {
	Name    string
	Healthy bool
	Error   string
}
