package journey

import "fmt"

// UnknownStepError is returned when (Phase, Step) is not part of the catalog.
// Nothing is mutated when it is returned.
type UnknownStepError struct {
	Phase string
	Step  int
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown journey step %s-%d", e.Phase, e.Step)
}
