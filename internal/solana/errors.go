package solana

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionNotFound is returned when getTransaction yields null.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAccountNotFound is returned when getAccountInfo yields a null value.
	ErrAccountNotFound = errors.New("account not found")

	// ErrClientClosed is returned by websocket operations after Close.
	ErrClientClosed = errors.New("client closed")
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
