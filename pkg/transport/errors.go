package transport

import (
	"errors"
	"net/http"
)

// ErrRequestBlocked is returned when the API's rate limit budget is exhausted.
var ErrRequestBlocked = errors.New("request blocked: rate limit budget exhausted")

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassAuth represents 401/403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Classify categorizes a request result. It returns "" for success.
func Classify(status int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorClassAuth
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
