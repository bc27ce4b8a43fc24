package mr

import (
	"io"

	"github.com/nemanja-m/wordfreq/pkg/core"
)

// Reducer merges a grouped stream into one aggregate per key. It keeps a
// single open group and finalizes it as soon as a different key arrives, so
// the input must have equal keys contiguous. Fed an ungrouped stream it emits
// one partial aggregate per run of equal keys.
//
// A Reducer belongs to one reduction; create a new one per stream.
type Reducer struct {
	currentKey   string
	runningTotal int
	open         bool

	emit func(core.Aggregate) error
}

// NewReducer returns a Reducer that passes every finalized aggregate to emit.
func NewReducer(emit func(core.Aggregate) error) *Reducer {
	return &Reducer{emit: emit}
}

// Push adds one emission to the stream.
func (r *Reducer) Push(e core.Emission) error {
	if r.open && e.Key == r.currentKey {
		r.runningTotal += e.Value
		return nil
	}
	if err := r.Flush(); err != nil {
		return err
	}
	r.currentKey = e.Key
	r.runningTotal = e.Value
	r.open = true
	return nil
}

// Flush finalizes the open group, if any.
func (r *Reducer) Flush() error {
	if !r.open {
		return nil
	}
	r.open = false
	return r.emit(core.Aggregate{Key: r.currentKey, Total: r.runningTotal})
}

// ReduceStats summarizes one reduction.
type ReduceStats struct {
	Records    int
	Aggregates int
	Skipped    int
}

// Reduce reads a grouped stream in the intermediate format from r and writes
// one record per aggregate to w. Malformed records are skipped and reported
// to onSkip, which may be nil.
func Reduce(r io.Reader, w io.Writer, onSkip func(*core.ParseError)) (ReduceStats, error) {
	var stats ReduceStats
	writer := core.NewRecordWriter(w)

	reducer := NewReducer(func(a core.Aggregate) error {
		stats.Aggregates++
		return writer.Write(a.Key, a.Total)
	})

	err := core.ScanRecords(r, func(e core.Emission) error {
		stats.Records++
		return reducer.Push(e)
	}, func(perr *core.ParseError) {
		stats.Skipped++
		if onSkip != nil {
			onSkip(perr)
		}
	})
	if err != nil {
		return stats, err
	}
	if err := reducer.Flush(); err != nil {
		return stats, err
	}
	return stats, writer.Flush()
}

// ReduceEmissions reduces an in-memory grouped stream.
func ReduceEmissions(grouped []core.Emission) []core.Aggregate {
	var aggregates []core.Aggregate
	reducer := NewReducer(func(a core.Aggregate) error {
		aggregates = append(aggregates, a)
		return nil
	})
	// emit above never fails, so Push and Flush cannot either.
	for _, e := range grouped {
		_ = reducer.Push(e)
	}
	_ = reducer.Flush()
	return aggregates
}
