// Package task describes the units of work a cluster runs for a job.
package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Type string

const (
	TypeMap    Type = "MAP"
	TypeReduce Type = "REDUCE"
)

// Exit codes reported by workers.
const (
	ExitCodeFailure = 1
	ExitCodePanic   = 2
	ExitCodeInvalid = 64
)

// Spec is one map or reduce task. Input and Output are blob names in the
// store shared by the coordinator and the worker running the task.
type Spec struct {
	ID     uuid.UUID
	JobID  uuid.UUID
	Type   Type
	Input  string
	Output string
}

func (s Spec) Validate() error {
	if s.ID == uuid.Nil {
		return errors.New("task id is required")
	}
	if s.Type != TypeMap && s.Type != TypeReduce {
		return fmt.Errorf("unsupported task type: %q", s.Type)
	}
	if s.Input == "" || s.Output == "" {
		return errors.New("task input and output are required")
	}
	return nil
}

// ExitError is a task that ran and failed, with the diagnostic output the
// worker captured.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("task exited with code %d: %s", e.Code, e.Stderr)
}
