package core

// Emission is a single (key, value) pair produced by a map task.
type Emission struct {
	Key   string
	Value int
}

// Aggregate is the merged total for one distinct key.
type Aggregate struct {
	Key   string
	Total int
}

// MapFunc turns one line of input into emissions.
type MapFunc func(line string) []Emission
