// Package stub provides in-memory feeds for tests.
package stub

import "context"

// Feed emits a fixed list of raw records and then closes.
type Feed struct {
	records [][]byte
	err     error
}

// NewFeed creates a feed over records.
func NewFeed(records ...[]byte) *Feed {
	return &Feed{records: records}
}

// NewStringFeed is a convenience for literal JSON records.
func NewStringFeed(records ...string) *Feed {
	raw := make([][]byte, len(records))
	for i, r := range records {
		raw[i] = []byte(r)
	}
	return &Feed{records: raw}
}

// NewFailingFeed returns a feed whose Records call fails with err.
func NewFailingFeed(err error) *Feed {
	return &Feed{err: err}
}

// Name implements ingestion.Feed.
func (f *Feed) Name() string { return "stub" }

// Records implements ingestion.Feed.
func (f *Feed) Records(ctx context.Context) (<-chan []byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for _, r := range f.records {
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
