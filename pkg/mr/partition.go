// Package mr holds the data-parallel building blocks of a word-frequency job:
// splitting input into map partitions, the shuffle/sort stage and the
// streaming reducer.
package mr

import "strings"

// InputSplit is a contiguous run of input lines assigned to one map task.
type InputSplit struct {
	Index int
	Lines []string
}

// Text joins the split's lines back into newline-separated text.
func (s InputSplit) Text() string {
	return strings.Join(s.Lines, "\n")
}

// SplitLines breaks text into lines on '\n'. A trailing newline does not
// produce an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// SplitCount picks the number of splits for numLines lines. It starts from
// the requested count, raises it so that no split holds more than
// maxLinesPerSplit lines (when maxLinesPerSplit > 0) and clamps the result to
// [1, numLines].
func SplitCount(numLines, requested, maxLinesPerSplit int) int {
	k := max(requested, 1)
	if maxLinesPerSplit > 0 {
		k = max(k, (numLines+maxLinesPerSplit-1)/maxLinesPerSplit)
	}
	return max(min(k, numLines), 1)
}

// Split divides lines into at most k contiguous splits whose sizes differ by
// at most one line. Concatenating the splits in index order yields every line
// exactly once. No lines yield a single empty split.
func Split(lines []string, k int) []InputSplit {
	k = max(min(k, len(lines)), 1)

	splits := make([]InputSplit, 0, k)
	base, extra := len(lines)/k, len(lines)%k
	start := 0
	for i := range k {
		size := base
		if i < extra {
			size++
		}
		splits = append(splits, InputSplit{Index: i, Lines: lines[start : start+size]})
		start += size
	}
	return splits
}
