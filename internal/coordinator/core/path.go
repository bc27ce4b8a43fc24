package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Blob names used by a job. Everything a job writes lives under JobPrefix,
// so jobs never touch each other's objects.

func JobPrefix(jobID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/", jobID)
}

func InputName(jobID uuid.UUID) string {
	return JobPrefix(jobID) + "input"
}

func SplitName(jobID uuid.UUID, index int) string {
	return fmt.Sprintf("%ssplits/split-%05d", JobPrefix(jobID), index)
}

func MapOutputName(jobID uuid.UUID, index int) string {
	return fmt.Sprintf("%smap/map-%05d", JobPrefix(jobID), index)
}

func GroupedName(jobID uuid.UUID) string {
	return JobPrefix(jobID) + "shuffle/grouped"
}

func OutputName(jobID uuid.UUID) string {
	return JobPrefix(jobID) + "output/part-00000"
}
