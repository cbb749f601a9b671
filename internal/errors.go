package internal

import (
	"errors"

	"github.com/NYCU-SDC/summer/pkg/problem"
)

var (
	// Auth Errors
	ErrMissingAuthHeader       = errors.New("missing access token")
	ErrInvalidAuthHeaderFormat = errors.New("invalid access token")
	ErrInvalidJWTToken         = errors.New("invalid JWT token")
	ErrNoActorInContext        = errors.New("no actor found in request context")

	// Access Errors
	ErrAccessDenied          = errors.New("access denied")
	ErrDuplicateSubmission   = errors.New("respondent already submitted a response for this survey")
	ErrSurveyPasswordInvalid = errors.New("survey password is missing or does not match")

	// Validation Errors
	ErrValidationFailed     = errors.New("validation failed")
	ErrRequiredFieldMissing = errors.New("required question has no answer")
	ErrInvalidRequestBody   = errors.New("invalid request body")

	// Survey Errors
	ErrSurveyNotFound    = errors.New("survey not found")
	ErrSurveyNotEditable = errors.New("survey is no longer editable")
	ErrSlugExhausted     = errors.New("could not find a free slug within the attempt bound")
	ErrSlugTaken         = errors.New("slug already in use by another survey")

	// Question Errors
	ErrQuestionNotFound = errors.New("question not found")
	ErrChoicesRequired  = errors.New("choice list is required for this field type")

	// Response Errors
	ErrResponseNotFound = errors.New("response not found")

	ErrNotFound = errors.New("not found")
)

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func ErrorHandler(err error) problem.Problem {
	switch {
	// Auth Errors
	case errors.Is(err, ErrMissingAuthHeader):
		return problem.NewUnauthorizedProblem("missing access token")
	case errors.Is(err, ErrInvalidAuthHeaderFormat):
		return problem.NewUnauthorizedProblem("invalid access token")
	case errors.Is(err, ErrInvalidJWTToken):
		return problem.NewUnauthorizedProblem("invalid JWT token")
	case errors.Is(err, ErrNoActorInContext):
		return problem.NewUnauthorizedProblem("no actor found in request context")

	// Access Errors
	case errors.Is(err, ErrDuplicateSubmission):
		return problem.NewForbiddenProblem("respondent already submitted a response for this survey")
	case errors.Is(err, ErrSurveyPasswordInvalid):
		return problem.NewForbiddenProblem("survey password is missing or does not match")
	case errors.Is(err, ErrAccessDenied):
		return problem.NewForbiddenProblem("access denied")

	// Validation Errors
	case errors.Is(err, ErrRequiredFieldMissing):
		return problem.NewValidateProblem("required question has no answer")
	case errors.Is(err, ErrChoicesRequired):
		return problem.NewValidateProblem("choice list is required for this field type")
	case errors.Is(err, ErrSlugTaken):
		return problem.NewValidateProblem("slug already in use by another survey")
	case errors.Is(err, ErrValidationFailed):
		return problem.NewValidateProblem("validation failed")
	case errors.Is(err, ErrInvalidRequestBody):
		return problem.NewBadRequestProblem("invalid request body")

	// Survey Errors
	case errors.Is(err, ErrSurveyNotFound):
		return problem.NewNotFoundProblem("survey not found")
	case errors.Is(err, ErrSurveyNotEditable):
		return problem.NewValidateProblem("survey is no longer editable")
	case errors.Is(err, ErrSlugExhausted):
		return problem.NewInternalServerProblem("could not allocate a unique slug")

	// Question Errors
	case errors.Is(err, ErrQuestionNotFound):
		return problem.NewNotFoundProblem("question not found")

	// Response Errors
	case errors.Is(err, ErrResponseNotFound):
		return problem.NewNotFoundProblem("response not found")

	case errors.Is(err, ErrNotFound):
		return problem.NewNotFoundProblem("not found")
	}
	return problem.Problem{}
}
