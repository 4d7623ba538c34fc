package models

import (
	"errors"
	"net/http"

	"election-engine/internal/election"
)

// Error codes
const (
	// General errors
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"

	// Election errors
	ErrCodeElectionNotFound          = "ELECTION_NOT_FOUND"
	ErrCodeInvalidPhase              = "ELECTION_INVALID_PHASE"
	ErrCodeElectionCancelled         = "ELECTION_IS_CANCELLED"
	ErrCodeKeyNotReady               = "ELECTION_KEY_NOT_READY"
	ErrCodeKeyRegenerationNotAllowed = "ELECTION_KEY_REGENERATION_NOT_ALLOWED"
	ErrCodeKeyGenerationFailed       = "ELECTION_KEY_GENERATION_FAILED"
	ErrCodeInvalidEligibility        = "ELECTION_INVALID_ELIGIBILITY"
	ErrCodeUndefinedTurnout          = "ELECTION_UNDEFINED_TURNOUT"
	ErrCodeAlreadyVoted              = "ALREADY_VOTED"
)

// APIError represents a structured API error
type APIError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    string            `json:"details,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	StatusCode int               `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// WithField adds a field error
func (e *APIError) WithField(field, message string) *APIError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// errorKinds maps engine error kinds to their wire code and status.
// Order matters: the first kind matched by errors.Is wins.
var errorKinds = []struct {
	kind   error
	code   string
	status int
}{
	{election.ErrNotFound, ErrCodeElectionNotFound, http.StatusNotFound},
	{election.ErrCancelled, ErrCodeElectionCancelled, http.StatusConflict},
	{election.ErrKeyGenerationFailed, ErrCodeKeyGenerationFailed, http.StatusBadGateway},
	{election.ErrKeyNotReady, ErrCodeKeyNotReady, http.StatusConflict},
	{election.ErrKeyRegenerationNotAllowed, ErrCodeKeyRegenerationNotAllowed, http.StatusConflict},
	{election.ErrDuplicateVote, ErrCodeAlreadyVoted, http.StatusConflict},
	{election.ErrInvalidEligibility, ErrCodeInvalidEligibility, http.StatusForbidden},
	{election.ErrUndefinedTurnout, ErrCodeUndefinedTurnout, http.StatusUnprocessableEntity},
	{election.ErrInvalidPhase, ErrCodeInvalidPhase, http.StatusConflict},
	{election.ErrInvalidSchedule, ErrCodeInvalidRequest, http.StatusBadRequest},
	{election.ErrInvalidInput, ErrCodeInvalidRequest, http.StatusBadRequest},
	{election.ErrConflict, ErrCodeConflict, http.StatusConflict},
}

// FromError translates an engine error into an APIError. Known kinds carry
// their message; anything else becomes a bare INTERNAL_ERROR.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return NewAPIError(k.code, err.Error(), k.status)
		}
	}
	return NewAPIError(ErrCodeInternalError, "Internal server error", http.StatusInternalServerError)
}
