package solana

import "context"

// WSClient is the Solana pubsub interface used by the live trade feed.
type WSClient interface {
	// SubscribeLogs streams log notifications for transactions matching filter.
	// The channel closes when the client is closed.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	Close() error
}

// LogsFilter selects transactions by mentioned account.
type LogsFilter struct {
	Mentions []string
}

// params renders the filter as the first logsSubscribe parameter.
func (f LogsFilter) params() interface{} {
	if len(f.Mentions) == 0 {
		return "all"
	}
	return map[string]interface{}{"mentions": f.Mentions}
}

// LogNotification is one logsNotification payload.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// Failed reports whether the transaction errored on chain.
func (n LogNotification) Failed() bool {
	return n.Err != nil
}
