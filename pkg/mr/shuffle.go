package mr

import (
	"cmp"
	"io"
	"slices"

	"github.com/nemanja-m/wordfreq/pkg/core"
)

// Shuffle returns a copy of emissions ordered by key so that equal keys are
// contiguous. The relative order of equal-key emissions is unspecified.
func Shuffle(emissions []core.Emission) []core.Emission {
	sorted := slices.Clone(emissions)
	slices.SortFunc(sorted, func(left, right core.Emission) int {
		return cmp.Compare(left.Key, right.Key)
	})
	return sorted
}

// IsGrouped reports whether no two emissions sharing a key are separated by
// an emission with a different key.
func IsGrouped(emissions []core.Emission) bool {
	closed := make(map[string]struct{})
	for i, e := range emissions {
		if i > 0 && emissions[i-1].Key != e.Key {
			closed[emissions[i-1].Key] = struct{}{}
			if _, seen := closed[e.Key]; seen {
				return false
			}
		}
	}
	return true
}

// ShuffleStats summarizes one shuffle pass.
type ShuffleStats struct {
	Records int
	Skipped int
}

// ShuffleRecords reads map outputs in the intermediate format, sorts all
// records by key and writes the grouped stream to w. Malformed records are
// dropped and counted.
func ShuffleRecords(w io.Writer, inputs ...io.Reader) (ShuffleStats, error) {
	var (
		stats     ShuffleStats
		emissions []core.Emission
	)
	for _, input := range inputs {
		err := core.ScanRecords(input, func(e core.Emission) error {
			emissions = append(emissions, e)
			return nil
		}, func(*core.ParseError) {
			stats.Skipped++
		})
		if err != nil {
			return stats, err
		}
	}

	writer := core.NewRecordWriter(w)
	for _, e := range Shuffle(emissions) {
		if err := writer.WriteEmission(e); err != nil {
			return stats, err
		}
	}
	stats.Records = len(emissions)
	return stats, writer.Flush()
}
