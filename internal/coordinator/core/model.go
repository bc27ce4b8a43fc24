package core

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobStateCreated   JobState = "CREATED"
	JobStateUploaded  JobState = "UPLOADED"
	JobStateMapping   JobState = "MAPPING"
	JobStateShuffling JobState = "SHUFFLING"
	JobStateReducing  JobState = "REDUCING"
	JobStateCollected JobState = "COLLECTED"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
	JobStateCleanedUp JobState = "CLEANED_UP"
)

// ErrInvalidTransition is returned when a job is moved to a state its
// current state cannot reach.
var ErrInvalidTransition = errors.New("invalid job state transition")

var transitions = map[JobState][]JobState{
	JobStateCreated:   {JobStateUploaded},
	JobStateUploaded:  {JobStateMapping},
	JobStateMapping:   {JobStateShuffling},
	JobStateShuffling: {JobStateReducing},
	JobStateReducing:  {JobStateCollected},
	JobStateCollected: {JobStateCompleted},
	JobStateCompleted: {JobStateCleanedUp},
	JobStateFailed:    {JobStateCleanedUp},
}

// IsTerminal reports whether a job in this state has finished running.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed || s == JobStateCleanedUp
}

// CanTransition reports whether from may move to to. Failed is reachable from
// every non-terminal state.
func CanTransition(from, to JobState) bool {
	if to == JobStateFailed {
		return !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage names the piece of work a job was doing when it failed.
type Stage string

const (
	StageUploading  Stage = "Uploading"
	StageMapping    Stage = "Mapping"
	StageShuffling  Stage = "Shuffling"
	StageReducing   Stage = "Reducing"
	StageCollecting Stage = "Collecting"
)

type Transition struct {
	From JobState
	To   JobState
	At   time.Time
}

type Job struct {
	ID    uuid.UUID
	Input string
	State JobState

	// Number of map tasks, known once the input has been split.
	NumSplits int

	CreatedAt   time.Time
	CompletedAt *time.Time

	// Set when the job fails.
	FailedStage Stage
	Error       string

	History []Transition
}

func NewJob(input string) *Job {
	return &Job{
		ID:        uuid.New(),
		Input:     input,
		State:     JobStateCreated,
		CreatedAt: time.Now().UTC(),
	}
}

// Transition moves the job to state to and records it in the history.
func (j *Job) Transition(to JobState) error {
	if !CanTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, to)
	}
	now := time.Now().UTC()
	j.History = append(j.History, Transition{From: j.State, To: to, At: now})
	j.State = to
	if to == JobStateCompleted || to == JobStateFailed {
		j.CompletedAt = &now
	}
	return nil
}

// Fail moves the job to Failed and records where and why.
func (j *Job) Fail(stage Stage, err error) error {
	if terr := j.Transition(JobStateFailed); terr != nil {
		return terr
	}
	j.FailedStage = stage
	j.Error = err.Error()
	return nil
}

func (j *Job) Duration() time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(j.CreatedAt)
}

// Snapshot returns a copy of the job that shares no mutable state with it.
func (j *Job) Snapshot() *Job {
	c := *j
	c.History = append([]Transition(nil), j.History...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// JobResult is the final word count of a completed job.
type JobResult struct {
	JobID       uuid.UUID
	Counts      map[string]int
	TotalWords  int
	UniqueWords int
}

// NewJobResult derives the statistics from counts.
func NewJobResult(jobID uuid.UUID, counts map[string]int) *JobResult {
	total := 0
	for _, count := range counts {
		total += count
	}
	return &JobResult{
		JobID:       jobID,
		Counts:      maps.Clone(counts),
		TotalWords:  total,
		UniqueWords: len(counts),
	}
}

type JobFilter struct {
	State  *JobState
	Limit  int
	Offset int
}
