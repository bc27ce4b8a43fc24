package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nemanja-m/wordfreq/internal/shared/task"
)

// ErrEmptyInput is the reason a submission without text is rejected.
var ErrEmptyInput = errors.New("no text provided")

// ValidationError rejects a submission before any job is created.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError is a failed operation on the blob store.
type StorageError struct {
	Op   string
	Name string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TaskExecutionError is a map or reduce task that exited with an error,
// timed out or could not be dispatched.
type TaskExecutionError struct {
	TaskID uuid.UUID
	Type   task.Type
	Code   int
	Stderr string
	Err    error
}

// NewTaskExecutionError classifies the error a cluster returned for spec.
func NewTaskExecutionError(spec task.Spec, err error) *TaskExecutionError {
	e := &TaskExecutionError{TaskID: spec.ID, Type: spec.Type, Err: err}
	var exitErr *task.ExitError
	if errors.As(err, &exitErr) {
		e.Code = exitErr.Code
		e.Stderr = exitErr.Stderr
	}
	return e
}

func (e *TaskExecutionError) Error() string {
	switch {
	case e.Timeout():
		return fmt.Sprintf("%s task %s timed out", e.Type, e.TaskID)
	case e.Stderr != "" || e.Code != 0:
		return fmt.Sprintf("%s task %s exited with code %d: %s", e.Type, e.TaskID, e.Code, e.Stderr)
	default:
		return fmt.Sprintf("%s task %s failed: %v", e.Type, e.TaskID, e.Err)
	}
}

func (e *TaskExecutionError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the task was cut short by its deadline.
func (e *TaskExecutionError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// JobFailure is returned for a job that reached the Failed state. It wraps
// the StorageError or TaskExecutionError that caused it.
type JobFailure struct {
	JobID uuid.UUID
	Stage Stage
	Err   error
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %s failed during %s: %v", e.JobID, e.Stage, e.Err)
}

func (e *JobFailure) Unwrap() error {
	return e.Err
}
