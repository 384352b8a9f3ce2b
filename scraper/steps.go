package scraper

import (
	"errors"
	"fmt"
)

// ErrNoCountries is returned when the help page exposes an empty country list
var ErrNoCountries = errors.New("no countries found on the help page")

// StepStatus is the outcome of one browser interaction step
type StepStatus int

const (
	StepOK StepStatus = iota
	// StepConsentDismissFailed is benign: the page works with or without the banner
	StepConsentDismissFailed
	StepNavigationFailed
	StepInteractionFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepOK:
		return "ok"
	case StepConsentDismissFailed:
		return "consent_dismiss_failed"
	case StepNavigationFailed:
		return "navigation_failed"
	case StepInteractionFailed:
		return "interaction_failed"
	}
	return fmt.Sprintf("StepStatus(%d)", int(s))
}

// StepResult tags the outcome of a step with the step name and the
// collaborator's error
type StepResult struct {
	Status StepStatus
	Step   string
	Err    error
}

func stepOK(step string) StepResult {
	return StepResult{Status: StepOK, Step: step}
}

func stepFailed(status StepStatus, step string, err error) StepResult {
	return StepResult{Status: status, Step: step, Err: err}
}

// OK reports whether the step succeeded
func (r StepResult) OK() bool {
	return r.Status == StepOK
}

// Fatal reports whether the failure aborts the scrape of the country
func (r StepResult) Fatal() bool {
	return r.Status == StepNavigationFailed || r.Status == StepInteractionFailed
}

// Message is the raw error text recorded in ERROR rows
func (r StepResult) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
