// Package solana contains the JSON-RPC and websocket transports used to talk to
// a Solana cluster, plus the address helpers needed to locate program accounts.
package solana

import "context"

// RPCClient is the subset of the Solana JSON-RPC API the bot relies on.
type RPCClient interface {
	// GetTransaction returns the confirmed transaction for signature, or
	// ErrTransactionNotFound when the node does not know it (yet).
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo returns the account at pubkey, or ErrAccountNotFound.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Transaction is a confirmed transaction with the meta fields needed to
// reconstruct balance changes.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta holds execution results.
type TransactionMeta struct {
	Err               interface{}
	Fee               int64
	PreBalances       []int64
	PostBalances      []int64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	LogMessages       []string
}

// TransactionMessage holds the static account keys; index 0 is the fee payer.
type TransactionMessage struct {
	AccountKeys []string
}

// FeePayer returns the first account key, or "" if the message is empty.
func (m *TransactionMessage) FeePayer() string {
	if m == nil || len(m.AccountKeys) == 0 {
		return ""
	}
	return m.AccountKeys[0]
}

// TokenBalance is an SPL token balance snapshot for one account in a transaction.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw integer amount as a decimal string
	Decimals     int
}

// AccountInfo is a Solana account with its data still base64 encoded.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string
	Executable bool
}
