package task

import (
	"testing"

	"github.com/google/uuid"
)

func TestSpec_Validate(t *testing.T) {
	valid := Spec{ID: uuid.New(), JobID: uuid.New(), Type: TypeMap, Input: "in", Output: "out"}

	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr bool
	}{
		{name: "valid map task", mutate: func(*Spec) {}},
		{name: "valid reduce task", mutate: func(s *Spec) { s.Type = TypeReduce }},
		{name: "missing id", mutate: func(s *Spec) { s.ID = uuid.Nil }, wantErr: true},
		{name: "unknown type", mutate: func(s *Spec) { s.Type = "COMBINE" }, wantErr: true},
		{name: "missing input", mutate: func(s *Spec) { s.Input = "" }, wantErr: true},
		{name: "missing output", mutate: func(s *Spec) { s.Output = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			err := spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExitError_Error(t *testing.T) {
	err := &ExitError{Code: 1, Stderr: "boom"}
	if got, want := err.Error(), "task exited with code 1: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
