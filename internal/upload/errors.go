package upload

import (
	"fmt"
	"strings"
)

// ProvisionError reports a failed container setup. It is logged and the
// upload attempt goes on.
type ProvisionError struct {
	Container string
	Err       error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %q: %v", e.Container, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// StrategyError is the failure of a single attempt. The coordinator turns it
// into a diagnostic and moves to the next strategy.
type StrategyError struct {
	Strategy StrategyKind
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// AllStrategiesFailedError is returned when the last strategy failed too.
type AllStrategiesFailedError struct {
	Attempts []*StrategyError
}

func (e *AllStrategiesFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "upload failed: no strategy attempted"
	}
	msgs := make([]string, len(e.Attempts))
	for i, attempt := range e.Attempts {
		msgs[i] = attempt.Error()
	}
	return "all upload strategies failed: " + strings.Join(msgs, "; ")
}

func (e *AllStrategiesFailedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, attempt := range e.Attempts {
		errs[i] = attempt
	}
	return errs
}
