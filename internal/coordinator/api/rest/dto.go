package rest

import (
	"time"
)

type WordCountRequest struct {
	Text string `json:"text"`

	// Optional number of map tasks; the coordinator default applies when
	// omitted.
	Splits *int `json:"splits,omitempty"`
}

type WordCountResponse struct {
	JobID       string         `json:"job_id"`
	WordCounts  map[string]int `json:"word_counts"`
	TotalWords  int            `json:"total_words"`
	UniqueWords int            `json:"unique_words"`
}

type StatusResponse struct {
	Status  string         `json:"status"` // "running" or "error"
	Message string         `json:"message,omitempty"`
	Workers []WorkerStatus `json:"workers"`
}

type WorkerStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type GetJobResponse struct {
	JobID       string           `json:"job_id"`
	State       string           `json:"state"`
	NumSplits   int              `json:"num_splits"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	FailedStage string           `json:"failed_stage,omitempty"`
	Error       string           `json:"error,omitempty"`
	History     []TransitionInfo `json:"history"`
}

type TransitionInfo struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

type ListJobsResponse struct {
	Jobs       []JobSummary `json:"jobs"`
	Total      int          `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	NextOffset *int         `json:"next_offset,omitempty"`
}

type JobSummary struct {
	JobID     string    `json:"job_id"`
	State     string    `json:"state"`
	NumSplits int       `json:"num_splits"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Code    int    `json:"code"`
}
