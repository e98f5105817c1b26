// Package stub provides in-memory Solana collaborators for tests.
package stub

import (
	"context"
	"sync"

	"solana-sales-bot/internal/solana"
)

// RPCClient serves transactions and accounts from maps.
type RPCClient struct {
	mu           sync.RWMutex
	transactions map[string]*solana.Transaction
	accounts     map[string]*solana.AccountInfo
	calls        map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates an empty stub.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.Transaction),
		accounts:     make(map[string]*solana.AccountInfo),
		calls:        make(map[string]int),
	}
}

// AddTransaction registers tx under its signature.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// AddAccount registers an account.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[pubkey] = info
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[method]
}

func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getTransaction"]++
	tx, ok := c.transactions[signature]
	if !ok {
		return nil, solana.ErrTransactionNotFound
	}
	return tx, nil
}

func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getAccountInfo"]++
	info, ok := c.accounts[pubkey]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return info, nil
}
