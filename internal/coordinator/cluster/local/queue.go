package local

import (
	"container/heap"
	"context"
	"errors"
	"sync"

	"github.com/nemanja-m/wordfreq/internal/shared/task"
)

// Priority defines task urgency levels (lower value means higher priority).
type Priority int

const (
	PriorityHigh Priority = 0
	PriorityLow  Priority = 1
)

// ErrQueueEmpty is returned when Pop() is called on an empty queue.
var ErrQueueEmpty = errors.New("task queue is empty")

// priorityFor serves reduce tasks first: a job waiting on its reducer is
// closer to finishing than one still mapping.
func priorityFor(t task.Type) Priority {
	if t == task.TypeReduce {
		return PriorityHigh
	}
	return PriorityLow
}

// request is a task submitted to the cluster together with the caller's
// context and the channel its outcome is delivered on.
type request struct {
	ctx  context.Context
	spec task.Spec
	done chan error
}

func newRequest(ctx context.Context, spec task.Spec) *request {
	return &request{ctx: ctx, spec: spec, done: make(chan error, 1)}
}

// taskQueue is a thread-safe min-heap of requests. Requests with the same
// priority are served in FIFO order.
type taskQueue struct {
	pq       priorityQueue
	mu       sync.Mutex
	sequence uint64
}

func newTaskQueue() *taskQueue {
	pq := make(priorityQueue, 0)
	heap.Init(&pq)
	return &taskQueue{pq: pq}
}

func (q *taskQueue) Push(req *request, priority Priority) error {
	if req == nil {
		return errors.New("cannot push nil request")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.pq, &item{
		req:      req,
		priority: priority,
		sequence: q.sequence,
	})
	q.sequence++
	return nil
}

func (q *taskQueue) Pop() (*request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pq.Len() == 0 {
		return nil, ErrQueueEmpty
	}
	it := heap.Pop(&q.pq).(*item)
	return it.req, nil
}

func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pq.Len()
}

type item struct {
	req      *request
	priority Priority
	sequence uint64 // Insertion order for FIFO within same priority
	index    int
}

// priorityQueue satisfies heap.Interface.
type priorityQueue []*item

func (pq priorityQueue) Len() int {
	return len(pq)
}

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].sequence < pq[j].sequence
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*pq)
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[0 : n-1]
	return it
}
