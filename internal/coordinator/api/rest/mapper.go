package rest

import (
	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
)

func ToWordCountResponse(result *core.JobResult) WordCountResponse {
	counts := result.Counts
	if counts == nil {
		counts = map[string]int{}
	}
	return WordCountResponse{
		JobID:       result.JobID.String(),
		WordCounts:  counts,
		TotalWords:  result.TotalWords,
		UniqueWords: result.UniqueWords,
	}
}

func ToStatusResponse(health core.ClusterHealth) StatusResponse {
	workers := make([]WorkerStatus, 0, len(health.Workers))
	for _, w := range health.Workers {
		workers = append(workers, WorkerStatus{
			Name:    w.Name,
			Healthy: w.Healthy,
			Error:   w.Error,
		})
	}

	resp := StatusResponse{Status: "running", Workers: workers}
	if !health.Healthy {
		resp.Status = "error"
		resp.Message = "no healthy workers"
	}
	return resp
}

func ToGetJobResponse(job *core.Job) GetJobResponse {
	history := make([]TransitionInfo, 0, len(job.History))
	for _, t := range job.History {
		history = append(history, TransitionInfo{
			From: string(t.From),
			To:   string(t.To),
			At:   t.At,
		})
	}

	return GetJobResponse{
		JobID:       job.ID.String(),
		State:       string(job.State),
		NumSplits:   job.NumSplits,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		FailedStage: string(job.FailedStage),
		Error:       job.Error,
		History:     history,
	}
}

func ToJobSummary(job *core.Job) JobSummary {
	return JobSummary{
		JobID:     job.ID.String(),
		State:     string(job.State),
		NumSplits: job.NumSplits,
		CreatedAt: job.CreatedAt,
	}
}
