package autodev

import (
	"errors"
	"fmt"
)

// Validation field names.
const (
	FieldVIN    = "vin"
	FieldAPIKey = "apiKey"
)

const (
	msgVINMissing    = "VIN not specified"
	msgAPIKeyMissing = "Please enter your auto.dev API key in the Settings tab first."
	msgParseFailed   = "Failed to parse API response"
	msgUnknownStatus = "Unknown error"
)

// ValidationError reports an input rejected before any request was issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ParseError reports a response body that is not a JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return msgParseFailed }

func (e *ParseError) Unwrap() error { return e.Err }

// NetworkError reports a non-success HTTP status or a transport failure.
// StatusCode is zero for transport failures.
type NetworkError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *NetworkError) Error() string {
	status := e.Status
	if status == "" {
		status = msgUnknownStatus
	}
	return fmt.Sprintf("API request failed: %s", status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Outcome labels used by Classify.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeParse      = "parse"
	OutcomeNetwork    = "network"
)

// Classify maps an error returned by the client to an outcome label.
func Classify(err error) string {
	var (
		verr *ValidationError
		perr *ParseError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &verr):
		return OutcomeValidation
	case errors.As(err, &perr):
		return OutcomeParse
	default:
		return OutcomeNetwork
	}
}
