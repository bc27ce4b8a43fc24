package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/storage"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
	"github.com/nemanja-m/wordfreq/internal/worker/core"
	pcore "github.com/nemanja-m/wordfreq/pkg/core"
	"github.com/nemanja-m/wordfreq/pkg/mr"
	"github.com/nemanja-m/wordfreq/pkg/wordcount"
)

// storeExecutor runs word-count tasks against a blob store. Map tasks read
// an input split and write one record per token; reduce tasks read a grouped
// stream and write one record per word.
type storeExecutor struct {
	store  storage.BlobStore
	logger logging.Logger

	// Called once per map task; the returned MapFunc is not shared.
	newMapper func() pcore.MapFunc
}

func NewStoreExecutor(store storage.BlobStore, logger logging.Logger) core.TaskExecutor {
	return &storeExecutor{
		store:     store,
		logger:    logger,
		newMapper: newWordMapper,
	}
}

func newWordMapper() pcore.MapFunc {
	return wordcount.NewTokenizer().Map
}

func (e *storeExecutor) Execute(ctx context.Context, spec task.Spec) error {
	switch spec.Type {
	case task.TypeMap:
		return e.runMap(ctx, spec)
	case task.TypeReduce:
		return e.runReduce(ctx, spec)
	default:
		return fmt.Errorf("unsupported task type: %s", spec.Type)
	}
}

func (e *storeExecutor) runMap(ctx context.Context, spec task.Spec) error {
	input, err := e.store.Get(ctx, spec.Input)
	if err != nil {
		return fmt.Errorf("failed to read map input: %w", err)
	}

	var out bytes.Buffer
	writer := pcore.NewRecordWriter(&out)
	mapLine := e.newMapper()
	emitted := 0
	for _, line := range mr.SplitLines(string(input)) {
		for _, emission := range mapLine(line) {
			if err := writer.WriteEmission(emission); err != nil {
				return err
			}
			emitted++
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if err := e.store.Put(ctx, spec.Output, out.Bytes()); err != nil {
		return fmt.Errorf("failed to write map output: %w", err)
	}

	e.logger.Debug("Map task finished", "task_id", spec.ID.String(), "emissions", emitted)
	return nil
}

func (e *storeExecutor) runReduce(ctx context.Context, spec task.Spec) error {
	input, err := e.store.Get(ctx, spec.Input)
	if err != nil {
		return fmt.Errorf("failed to read reduce input: %w", err)
	}

	var out bytes.Buffer
	stats, err := mr.Reduce(bytes.NewReader(input), &out, func(perr *pcore.ParseError) {
		e.logger.Debug("Skipping malformed record", "task_id", spec.ID.String(), "error", perr.Error())
	})
	if err != nil {
		return err
	}

	if err := e.store.Put(ctx, spec.Output, out.Bytes()); err != nil {
		return fmt.Errorf("failed to write reduce output: %w", err)
	}

	e.logger.Debug("Reduce task finished",
		"task_id", spec.ID.String(),
		"records", stats.Records,
		"aggregates", stats.Aggregates,
		"skipped", stats.Skipped,
	)
	return nil
}
