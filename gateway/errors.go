package gateway

import "fmt"

// RemoteError is an application-level failure reported by the Gateway API:
// the request reached the gateway but the operation could not be performed
// (path not found, already exists, remote-side permission denied).
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway error: %s", e.Message)
}

// NetworkError is a transport-level failure: connection refused, timeout,
// an unexpected HTTP status without a gateway error body, or a response
// body that could not be decoded.
type NetworkError struct {
	Reason string
	Err    error // underlying transport error, may be nil
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("network error: %s", e.Reason)
}

func (e *NetworkError) Unwrap() error { return e.Err }
