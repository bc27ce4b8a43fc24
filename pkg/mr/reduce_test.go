package mr

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/wordfreq/pkg/core"
	"github.com/nemanja-m/wordfreq/pkg/wordcount"
)

func TestReduce_SumsGroupedStream(t *testing.T) {
	input := "hadoop\t1\nhello\t1\nhello\t1\nworld\t1\n"

	var out bytes.Buffer
	stats, err := Reduce(strings.NewReader(input), &out, nil)

	require.NoError(t, err)
	require.Equal(t, "hadoop\t1\nhello\t2\nworld\t1\n", out.String())
	require.Equal(t, ReduceStats{Records: 4, Aggregates: 3}, stats)
}

func TestReduce_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"a\t1",
		"a\tnot-a-number",
		"garbage",
		"a\t2",
		"b\t1\textra",
		"",
		"b\t5",
	}, "\n")

	var skipped []*core.ParseError
	var out bytes.Buffer
	stats, err := Reduce(strings.NewReader(input), &out, func(perr *core.ParseError) {
		skipped = append(skipped, perr)
	})

	require.NoError(t, err)
	require.Equal(t, "a\t3\nb\t5\n", out.String())
	require.Equal(t, 4, stats.Skipped)
	require.Len(t, skipped, 4)
}

func TestReduce_EmptyStream(t *testing.T) {
	var out bytes.Buffer
	stats, err := Reduce(strings.NewReader(""), &out, nil)

	require.NoError(t, err)
	require.Empty(t, out.String())
	require.Zero(t, stats.Aggregates)
}

func TestReduce_EmptyKeyIsAGroup(t *testing.T) {
	var out bytes.Buffer
	_, err := Reduce(strings.NewReader("\t1\n"), &out, nil)
	require.NoError(t, err)
	// "\t1" trims to "1", which has a single field.
	require.Empty(t, out.String())

	aggregates := ReduceEmissions([]core.Emission{{Key: "", Value: 2}, {Key: "", Value: 3}})
	require.Equal(t, []core.Aggregate{{Key: "", Total: 5}}, aggregates)
}

func TestReducer_PropagatesEmitError(t *testing.T) {
	boom := errors.New("write failed")
	reducer := NewReducer(func(core.Aggregate) error { return boom })

	require.NoError(t, reducer.Push(core.Emission{Key: "a", Value: 1}))
	require.ErrorIs(t, reducer.Push(core.Emission{Key: "b", Value: 1}), boom)
}

func TestReducer_InstancesAreIndependent(t *testing.T) {
	var first, second []core.Aggregate
	r1 := NewReducer(func(a core.Aggregate) error { first = append(first, a); return nil })
	r2 := NewReducer(func(a core.Aggregate) error { second = append(second, a); return nil })

	r1.Push(core.Emission{Key: "x", Value: 1})
	r2.Push(core.Emission{Key: "x", Value: 10})
	r1.Push(core.Emission{Key: "x", Value: 1})
	r1.Flush()
	r2.Flush()

	require.Equal(t, []core.Aggregate{{Key: "x", Total: 2}}, first)
	require.Equal(t, []core.Aggregate{{Key: "x", Total: 10}}, second)
}

// The reducer is only correct on a grouped stream: the same emissions yield
// the right totals once shuffled and split totals when a key's run is broken.
func TestReducer_RequiresGroupedInput(t *testing.T) {
	ungrouped := []core.Emission{{Key: "hello", Value: 1}, {Key: "world", Value: 1}, {Key: "hello", Value: 1}, {Key: "hadoop", Value: 1}}
	require.False(t, IsGrouped(ungrouped))

	broken := ReduceEmissions(ungrouped)
	require.Equal(t, []core.Aggregate{
		{Key: "hello", Total: 1},
		{Key: "world", Total: 1},
		{Key: "hello", Total: 1},
		{Key: "hadoop", Total: 1},
	}, broken)
	require.NotEqual(t, map[string]int{"hello": 2, "world": 1, "hadoop": 1}, toCounts(broken))

	correct := ReduceEmissions(Shuffle(ungrouped))
	require.Equal(t, map[string]int{"hello": 2, "world": 1, "hadoop": 1}, toCounts(correct))
	require.Len(t, correct, 3)
}

func TestPipeline_DeterministicAcrossSplitCounts(t *testing.T) {
	text := "the quick brown fox\njumps over the lazy dog\n\nThe DOG sleeps.\nfox, fox, fox!\n"

	var reference map[string]int
	for k := 1; k <= 6; k++ {
		var emissions []core.Emission
		for _, split := range Split(SplitLines(text), k) {
			tokenizer := wordcount.NewTokenizer()
			for _, line := range split.Lines {
				emissions = append(emissions, tokenizer.Map(line)...)
			}
		}
		counts := toCounts(ReduceEmissions(Shuffle(emissions)))
		if reference == nil {
			reference = counts
			continue
		}
		require.Equal(t, reference, counts, "split count %d", k)
	}
	require.Equal(t, 5, reference["fox"])
	require.Equal(t, 3, reference["the"])
}

// toCounts collects aggregates the way a result reader does: one entry per
// key, later aggregates overwriting earlier ones.
func toCounts(aggregates []core.Aggregate) map[string]int {
	counts := make(map[string]int)
	for _, a := range aggregates {
		counts[a.Key] = a.Total
	}
	return counts
}

func TestReduceEmissions(t *testing.T) {
	grouped := []core.Emission{
		{Key: "a", Value: 1},
		{Key: "a", Value: 2},
		{Key: "b", Value: 1},
		{Key: "c", Value: 4},
		{Key: "c", Value: 1},
	}
	require.Equal(t, []core.Aggregate{
		{Key: "a", Total: 3},
		{Key: "b", Total: 1},
		{Key: "c", Total: 5},
	}, ReduceEmissions(grouped))

	require.Empty(t, ReduceEmissions(nil))
}
