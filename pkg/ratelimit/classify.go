package ratelimit

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Kind is the retry classification of a provider API error.
type Kind int

const (
	// KindTerminal errors are returned to the caller immediately
	// (AccessDenied, NotFound, validation failures).
	KindTerminal Kind = iota
	// KindThrottled errors are provider-side rate limiting.
	KindThrottled
	// KindTransient errors are retried on the same schedule as throttling.
	KindTransient
)

var throttleCodes = map[string]bool{
	"Throttling":               true,
	"ThrottlingException":      true,
	"RequestLimitExceeded":     true,
	"TooManyRequestsException": true,
	"SlowDown":                 true,
}

var transientCodes = map[string]bool{
	"ServiceUnavailable": true,
	"RequestTimeout":     true,
	"InternalError":      true,
}

// Classify maps a provider error to its retry kind. Codes are matched via
// the smithy error chain; HTTP status codes cover responses that never made
// it to a modeled error shape.
func Classify(err error) Kind {
	if err == nil {
		return KindTerminal
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if throttleCodes[code] {
			return KindThrottled
		}
		if transientCodes[code] {
			return KindTransient
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		if status == 429 {
			return KindThrottled
		}
		if status >= 500 && status != 501 {
			return KindTransient
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate exceeded") || strings.Contains(msg, "throttled") {
		return KindThrottled
	}

	return KindTerminal
}

// ErrorCode extracts the provider-native error code, if any.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
