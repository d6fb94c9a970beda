// Package ilperr defines the error taxonomy shared by the quoting engine,
// the message correlator and the secure details codec.
package ilperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoConnectors is returned when a quote is requested but there are no
// connectors to query.
var ErrNoConnectors = errors.New("no connectors available for quoting")

// InvalidArgumentError reports malformed caller input. It is surfaced
// synchronously, before any transport interaction.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// InvalidArgument builds an InvalidArgumentError from a format string.
func InvalidArgument(format string, args ...any) error {
	return &InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// ProtocolKind identifies the specific way a PSK message was malformed.
type ProtocolKind string

const (
	KindInvalidRequest    ProtocolKind = "invalid request"
	KindInvalidStatusLine ProtocolKind = "invalid status line"
	KindInvalidHeaderLine ProtocolKind = "invalid header line"
	KindMissingKeyHeader  ProtocolKind = "missing key header"
	KindDecryptionFailed  ProtocolKind = "decryption failed"
)

// ProtocolError reports a corrupt or hostile PSK message. It is not
// recoverable by retry.
type ProtocolError struct {
	Kind   ProtocolKind
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return "protocol error: " + string(e.Kind)
	}
	return "protocol error: " + string(e.Kind) + ": " + e.Detail
}

// Protocol builds a ProtocolError of the given kind.
func Protocol(kind ProtocolKind, format string, args ...any) error {
	return &ProtocolError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsProtocol reports whether err is a ProtocolError of the given kind.
func IsProtocol(err error, kind ProtocolKind) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Kind == kind
}

// TransportError carries an error message explicitly signaled by the
// remote peer via an "error" method response.
type TransportError struct {
	Remote string
}

func (e *TransportError) Error() string {
	return "remote error: " + e.Remote
}

// TimeoutError reports that no matching response arrived within the
// configured window.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for response", e.After)
}

// AggregateQuoteError is raised when every queried connector failed. Its
// message enumerates each per-connector failure for diagnosability.
type AggregateQuoteError struct {
	Failures []string
}

func (e *AggregateQuoteError) Error() string {
	return "all connectors failed to quote: " + strings.Join(e.Failures, ", ")
}
