package storage

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
)

// InMemoryJobStore keeps jobs that are in flight. Jobs are stored and
// returned as snapshots, so callers never share state with the store.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*core.Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[uuid.UUID]*core.Job),
	}
}

func (s *InMemoryJobStore) SaveJob(job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Snapshot()
	return nil
}

func (s *InMemoryJobStore) UpdateJob(job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Snapshot()
	return nil
}

// GetJobByID returns nil when no job with id is in flight.
func (s *InMemoryJobStore) GetJobByID(id uuid.UUID) (*core.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return nil, nil
	}
	return job.Snapshot(), nil
}

// GetJobs returns the jobs matching filter, oldest first, along with the
// number of matches before paging. A zero Limit means no limit.
func (s *InMemoryJobStore) GetJobs(filter core.JobFilter) ([]*core.Job, int, error) {
	s.mu.RLock()
	matched := make([]*core.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.State != nil && job.State != *filter.State {
			continue
		}
		matched = append(matched, job.Snapshot())
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *core.Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (s *InMemoryJobStore) DeleteJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}
