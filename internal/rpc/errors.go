package rpc

import "fmt"

// ChainError is a typed error for provider failures. It carries enough
// context for the formatter to render a human-readable failure block
// instead of propagating a raw provider exception.
type ChainError struct {
	Network string // canonical network name
	Op      string // operation that failed, e.g. "getTokenBalances"
	Message string // human-readable message, safe to show to the user
	Err     error  // underlying cause
}

func (e *ChainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s on %s: %s: %v", e.Op, e.Network, e.Message, e.Err)
	}
	return fmt.Sprintf("%s on %s: %s", e.Op, e.Network, e.Message)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// UserMessage returns the short message suitable for embedding in a
// context block or API response.
func (e *ChainError) UserMessage() string {
	return e.Message
}

func newChainError(network, op, message string, err error) *ChainError {
	return &ChainError{Network: network, Op: op, Message: message, Err: err}
}
