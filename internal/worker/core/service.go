package core

import (
	"context"

	"github.com/nemanja-m/wordfreq/internal/shared/task"
)

// TaskExecutor performs the work of one task.
type TaskExecutor interface {
	Execute(ctx context.Context, spec task.Spec) error
}

// WorkerService runs tasks on behalf of a coordinator. RunTask returns nil on
// success, a *task.ExitError when the task failed, or the context error when
// the task was cut short.
type WorkerService interface {
	RunTask(ctx context.Context, spec task.Spec) error
}
