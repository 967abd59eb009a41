// Package functions holds the event handlers triggered by user, storage and message writes.
package functions

import (
	"context"
	"fmt"
)

// step is one fallible stage of a sequence.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// StepError reports which stage of a sequence failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// runSteps executes steps in order and stops at the first failure.
func runSteps(ctx context.Context, steps ...step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: s.name, Err: err}
		}
		if err := s.run(ctx); err != nil {
			return &StepError{Step: s.name, Err: err}
		}
	}
	return nil
}
