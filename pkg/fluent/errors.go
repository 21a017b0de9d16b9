package fluent

import (
	"errors"
	"fmt"
)

// Returned by Default and PostEvent when Setup has not installed a sender
var ErrNoSender = errors.New("fluent: no global sender installed, call Setup first")

// Record could not be represented in the configured wire format
type EncodeError struct {
	Format string // "msgpack" or "json"
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("fluent: failed to encode record as %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Stage of the transport that failed
type TransportOp string

const (
	OpConnect TransportOp = "connect"
	OpWrite   TransportOp = "write"
)

// Connection manager failure. The connection is already torn down when this is returned.
type TransportError struct {
	Op      TransportOp
	Network string
	Address string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fluent: %s %s %s: %v", e.Op, e.Network, e.Address, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
