package rtcdc

import (
	"errors"
	"fmt"
)

// InitFailedError indicates a transport failed to initialize during
// construction. Subsystem names the transport (ice, dtls, sctp) that
// failed.
type InitFailedError struct {
	Subsystem string
	Err       error
}

func (e *InitFailedError) Error() string {
	return fmt.Sprintf("rtcdc: init failed: %s: %v", e.Subsystem, e.Err)
}

func (e *InitFailedError) Unwrap() error { return e.Err }

// InvalidSDPError indicates the SDP offer or answer could not be parsed.
type InvalidSDPError struct {
	Err error
}

func (e *InvalidSDPError) Error() string {
	return fmt.Sprintf("rtcdc: invalid sdp: %v", e.Err)
}

func (e *InvalidSDPError) Unwrap() error { return e.Err }

// InvalidCandidateError indicates a remote ICE candidate line did not parse.
type InvalidCandidateError struct {
	Err error
}

func (e *InvalidCandidateError) Error() string {
	return fmt.Sprintf("rtcdc: invalid candidate: %v", e.Err)
}

func (e *InvalidCandidateError) Unwrap() error { return e.Err }

// UnknownChannelError indicates an operation referenced a stream id that is
// not present in the channel registry.
type UnknownChannelError struct {
	SID uint16
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("rtcdc: unknown data channel sid=%d", e.SID)
}

// SendFailedError wraps an underlying SCTP send failure.
type SendFailedError struct {
	Err error
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("rtcdc: send failed: %v", e.Err)
}

func (e *SendFailedError) Unwrap() error { return e.Err }

// SendCancelledError indicates a send was aborted by Stop() while retrying.
type SendCancelledError struct{}

func (e *SendCancelledError) Error() string { return "rtcdc: send cancelled" }

// StoppedError indicates the endpoint has already been stopped; every public
// operation returns this once Stop() has run.
type StoppedError struct{}

func (e *StoppedError) Error() string { return "rtcdc: endpoint stopped" }

// HandshakeFailedError wraps a DTLS handshake failure.
type HandshakeFailedError struct {
	Err error
}

func (e *HandshakeFailedError) Error() string {
	return fmt.Sprintf("rtcdc: dtls handshake failed: %v", e.Err)
}

func (e *HandshakeFailedError) Unwrap() error { return e.Err }

// StreamResetDeniedError indicates the peer denied or failed a requested
// stream reset.
type StreamResetDeniedError struct {
	SID uint16
}

func (e *StreamResetDeniedError) Error() string {
	return fmt.Sprintf("rtcdc: stream reset denied for sid=%d", e.SID)
}

// Sentinel errors for conditions that don't need a payload beyond a message.
var (
	ErrNoConfig             = errors.New("no configuration provided")
	ErrTooManySTUNServers   = errors.New("only one stun server is supported")
	ErrSCTPNotConnected     = errors.New("sctp association is not up yet")
	ErrChannelNotOpen       = errors.New("data channel is not open")
	ErrNilCandidateCallback = errors.New("onLocalCandidate callback is required")
)
