package jupiter

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or invalid provider setting. It is
// raised before any request is built.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("jupiter: %s is not configured", e.Setting)
}

// ErrMissingAPIKey is returned by NewClient when no API key is supplied.
var ErrMissingAPIKey = &ConfigurationError{Setting: "api key"}

// InvalidRequestError rejects a request before it reaches the network.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamQuoteError is an /order rejection. Message carries the upstream
// text verbatim when one was provided.
type UpstreamQuoteError struct {
	Status  int
	Code    int
	Message string
}

func (e *UpstreamQuoteError) Error() string { return e.Message }

// UpstreamExecuteError is an /execute rejection.
type UpstreamExecuteError struct {
	Status    int
	Code      int
	Message   string
	Signature string
}

func (e *UpstreamExecuteError) Error() string { return e.Message }

// IsUpstream reports whether err came from the provider rather than from
// local validation or configuration.
func IsUpstream(err error) bool {
	var qe *UpstreamQuoteError
	var ee *UpstreamExecuteError
	return errors.As(err, &qe) || errors.As(err, &ee)
}
