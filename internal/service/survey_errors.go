package service

import (
	"errors"
	"strings"
)

var (
	// ErrSurveyTemplateNotFound indicates the template does not exist.
	ErrSurveyTemplateNotFound = errors.New("survey template not found")
	// ErrSurveyTemplateLocked indicates the template is inactive and its forms are closed.
	ErrSurveyTemplateLocked = errors.New("survey template is locked")
	// ErrSurveyAssignmentNotFound indicates the assignment does not exist or is not visible to the caller.
	ErrSurveyAssignmentNotFound = errors.New("survey assignment not found")
	// ErrSurveyAssignmentSubmitted indicates a response was already recorded for the assignment.
	ErrSurveyAssignmentSubmitted = errors.New("survey already submitted")
	// ErrSurveyAssignmentExpired indicates the assignment passed its expiry.
	ErrSurveyAssignmentExpired = errors.New("survey assignment expired")
	// ErrSurveyAssignmentClosed indicates the assignment stopped accepting responses while the
	// submission was in flight.
	ErrSurveyAssignmentClosed = errors.New("survey assignment is no longer pending")
	// ErrSurveyValidation is the sentinel wrapped by SurveyValidationError.
	ErrSurveyValidation = errors.New("survey validation failed")
)

// SurveyValidationError reports a rejected payload. Missing lists required question ids
// left unanswered.
type SurveyValidationError struct {
	Reason  string
	Missing []string
}

func (e *SurveyValidationError) Error() string {
	if len(e.Missing) > 0 {
		return e.Reason + ": " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

func (e *SurveyValidationError) Unwrap() error {
	return ErrSurveyValidation
}

func newSurveyValidationError(reason string, missing ...string) *SurveyValidationError {
	return &SurveyValidationError{Reason: reason, Missing: missing}
}
