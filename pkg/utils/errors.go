package utils

import (
	"context"
	"errors"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrDatabase         = errors.New("database error")       // Wraps badger errors
	ErrEncoding         = errors.New("encoding error")       // Wraps msgpack errors
	ErrParsing          = errors.New("parsing error")        // Wraps HTML/URL parsing errors
	ErrFetch            = errors.New("fetch error")          // Wraps HTTP/network errors on refetch
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	ErrDoNotScrape      = errors.New("venue marked do-not-scrape")
	ErrJobConflict      = errors.New("scrape job already running")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConfigValidation = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Check against sentinel errors first
	switch {
	case errors.Is(err, ErrNotFound):
		return "Store_NotFound"
	case errors.Is(err, ErrAlreadyExists):
		return "Store_AlreadyExists"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrEncoding):
		return "Encoding_Other"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFetch):
		return categorizeFetch(err)
	case errors.Is(err, ErrRobotsDisallowed):
		return "Policy_Robots"
	case errors.Is(err, ErrDoNotScrape):
		return "Policy_DoNotScrape"
	case errors.Is(err, ErrJobConflict):
		return "Job_Conflict"
	case errors.Is(err, ErrInvalidInput):
		return "Input_Invalid"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	return categorizeFetch(err)
}

// categorizeFetch inspects network-ish errors by type and message substring.
// Upstream libraries are inconsistent about wrapping, so the string checks
// stay as a fallback.
func categorizeFetch(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}

	lowerErrMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErrMsg, "timeout"):
		return "Network_TimeoutGeneric"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "Network_DNSLookup"
	case strings.Contains(lowerErrMsg, "tls"), strings.Contains(lowerErrMsg, "certificate"):
		return "Network_TLS"
	case strings.Contains(lowerErrMsg, "reset by peer"):
		return "Network_ConnectionReset"
	case strings.Contains(lowerErrMsg, " 404 "), strings.Contains(lowerErrMsg, "status 404"):
		return "HTTP_404"
	case strings.Contains(lowerErrMsg, " 403 "), strings.Contains(lowerErrMsg, "status 403"):
		return "HTTP_403"
	case strings.Contains(lowerErrMsg, " 429 "), strings.Contains(lowerErrMsg, "status 429"):
		return "HTTP_429"
	}

	return "Unknown"
}
