package transmission

import (
	"errors"
	"fmt"
)

// Common errors returned by the Transmission client.
var (
	// ErrTorrentNotFound is returned by callers that treat an absent torrent as an error.
	// Find itself reports absence with a nil torrent.
	ErrTorrentNotFound = errors.New("torrent not found")

	// ErrInvalidID is returned when a torrent id is neither numeric nor a hash string.
	ErrInvalidID = errors.New("invalid torrent id")

	// ErrDuplicateTorrent is returned by Add when the daemon already has the torrent.
	ErrDuplicateTorrent = errors.New("torrent already added")

	// ErrMissingURL is returned when the client is constructed without an RPC URL.
	ErrMissingURL = errors.New("transmission RPC URL is required")
)

// TransportError indicates the request never produced an HTTP response,
// e.g. connection refused, timeout or a malformed URL.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transmission %s request to %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the envelope result is not "success".
// Its message is the daemon's result string, unmodified.
type ProtocolError struct {
	Method string
	Result string
}

func (e *ProtocolError) Error() string {
	return e.Result
}

// StatusError is returned when the daemon answers with a non-2xx status
// after the session handshake has run its course and the body carries no
// failure result. Such a result is reported as a ProtocolError instead.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transmission RPC returned status %d: %s", e.StatusCode, e.Status)
}

// IsUnauthorized checks if the daemon rejected the basic-auth credentials
func (e *StatusError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsSessionConflict reports whether the daemon rejected the refreshed session id as well.
func (e *StatusError) IsSessionConflict() bool {
	return e.StatusCode == 409
}

// DecodeError indicates the response body is not a valid RPC envelope.
type DecodeError struct {
	Method string
	Body   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s response: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
