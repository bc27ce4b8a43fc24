package mr

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/wordfreq/pkg/core"
)

func TestShuffle_GroupsKeys(t *testing.T) {
	input := []core.Emission{
		{Key: "world", Value: 1}, {Key: "hello", Value: 1}, {Key: "hadoop", Value: 1}, {Key: "hello", Value: 1}, {Key: "world", Value: 1}, {Key: "a", Value: 1},
	}

	got := Shuffle(input)

	require.True(t, IsGrouped(got))
	keys := make([]string, len(got))
	for i, e := range got {
		keys[i] = e.Key
	}
	require.Equal(t, []string{"a", "hadoop", "hello", "hello", "world", "world"}, keys)

	// The input slice is left untouched.
	require.Equal(t, "world", input[0].Key)
}

func TestShuffle_ByteOrder(t *testing.T) {
	got := Shuffle([]core.Emission{{Key: "b", Value: 1}, {Key: "B", Value: 1}, {Key: "_", Value: 1}, {Key: "é", Value: 1}, {Key: "1", Value: 1}})
	keys := make([]string, len(got))
	for i, e := range got {
		keys[i] = e.Key
	}
	require.Equal(t, []string{"1", "B", "_", "b", "é"}, keys)
}

func TestIsGrouped(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want bool
	}{
		{name: "empty", keys: nil, want: true},
		{name: "sorted", keys: []string{"a", "a", "b", "c"}, want: true},
		{name: "grouped but unsorted", keys: []string{"c", "c", "a", "b"}, want: true},
		{name: "split group", keys: []string{"a", "b", "a"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emissions := make([]core.Emission, len(tt.keys))
			for i, k := range tt.keys {
				emissions[i] = core.Emission{Key: k, Value: 1}
			}
			require.Equal(t, tt.want, IsGrouped(emissions))
		})
	}
}

func TestShuffleRecords_MergesMapOutputs(t *testing.T) {
	first := strings.NewReader("hello\t1\nworld\t1\n")
	second := strings.NewReader("hello\t1\nbad line\nhadoop\t1\n")

	var out bytes.Buffer
	stats, err := ShuffleRecords(&out, first, second)

	require.NoError(t, err)
	require.Equal(t, ShuffleStats{Records: 4, Skipped: 1}, stats)
	require.Equal(t, "hadoop\t1\nhello\t1\nhello\t1\nworld\t1\n", out.String())
}

func TestShuffleRecords_NoInput(t *testing.T) {
	var out bytes.Buffer
	stats, err := ShuffleRecords(&out)

	require.NoError(t, err)
	require.Zero(t, stats.Records)
	require.Empty(t, out.String())
}
