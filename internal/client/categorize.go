package client

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as the upstreamErrorsTotal category label.
const (
	ErrorCategoryTimeout     ErrorCategory = "timeout"
	ErrorCategoryNetwork     ErrorCategory = "network"
	ErrorCategoryCircuitOpen ErrorCategory = "circuit_open"
	ErrorCategoryUpstream4xx ErrorCategory = "upstream_4xx"
	ErrorCategoryUpstream5xx ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing     ErrorCategory = "parsing"
	ErrorCategoryUnknown     ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrCircuitOpen) {
		return ErrorCategoryCircuitOpen
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		if fetchErr.Status >= 500 {
			return ErrorCategoryUpstream5xx
		}
		return ErrorCategoryUpstream4xx
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrorCategoryParsing
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return ErrorCategoryNetwork
	}

	return ErrorCategoryUnknown
}

// RecordFailure counts err against service in upstreamErrorsTotal.
func RecordFailure(service string, err error) {
	if err == nil {
		return
	}
	observability.UpstreamErrorsTotal.WithLabelValues(service, string(CategorizeError(err))).Inc()
}
