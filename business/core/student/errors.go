package student

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/register/foundation/signer"
)

// Set of error variables for the view.
var (
	ErrBusy     = errors.New("another action is in progress")
	ErrNotReady = errors.New("the register is not connected")
)

// Set of operations used to label call errors and metrics.
const (
	OpConnect  = "connect"
	OpTotal    = "total"
	OpList     = "list"
	OpSearch   = "search"
	OpRegister = "register"
	OpRemove   = "remove"
)

// ConnectionError represents a failure to reach the wallet or the contract
// while initializing. It is terminal for the view.
type ConnectionError struct {
	Err error
}

// Error implements the error interface.
func (ce *ConnectionError) Error() string {
	return fmt.Sprintf("connection: %s", ce.Err)
}

// Unwrap returns the underlying error.
func (ce *ConnectionError) Unwrap() error {
	return ce.Err
}

// Message returns the text shown to the user.
func (ce *ConnectionError) Message() string {
	if errors.Is(ce.Err, signer.ErrNoWallet) {
		return "Please configure a wallet key to use this application."
	}
	return "Failed to connect to the contract. Please make sure the wallet is configured and the node is reachable."
}

// CallError represents a failed read or write against the contract.
type CallError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (ce *CallError) Error() string {
	return fmt.Sprintf("%s: %s", ce.Op, ce.Err)
}

// Unwrap returns the underlying error.
func (ce *CallError) Unwrap() error {
	return ce.Err
}

// Message returns the text shown to the user.
func (ce *CallError) Message() string {
	switch ce.Op {
	case OpRegister:
		return "Failed to register student. Please try again."
	case OpRemove:
		return "Failed to remove student. Please try again."
	case OpSearch:
		return "Failed to find student. Please try again."
	}
	return "Failed to load students. Please try again."
}

// IsCallError checks if an error of type CallError exists.
func IsCallError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}

// IsConnectionError checks if an error of type ConnectionError exists.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// Message returns the user facing text for any error produced by the view.
func Message(err error) string {
	var conErr *ConnectionError
	if errors.As(err, &conErr) {
		return conErr.Message()
	}

	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Message()
	}

	switch {
	case errors.Is(err, ErrBusy):
		return "Please wait for the current action to finish."
	case errors.Is(err, ErrNotReady):
		return "The register is not connected."
	}

	return "Something went wrong. Please try again."
}
