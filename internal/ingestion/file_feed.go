package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/logging"
)

const maxRecordSize = 1 << 20

// FileFeed replays newline-delimited JSON trade records.
type FileFeed struct {
	open func() (io.ReadCloser, error)
	log  *logrus.Entry
}

// NewFileFeed reads records from path.
func NewFileFeed(path string) *FileFeed {
	return &FileFeed{
		open: func() (io.ReadCloser, error) { return os.Open(path) },
		log:  logging.WithComponent("file-feed").WithField("path", path),
	}
}

// NewReaderFeed reads records from r.
func NewReaderFeed(r io.Reader) *FileFeed {
	return &FileFeed{
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
		log:  logging.WithComponent("file-feed"),
	}
}

// Name implements Feed.
func (f *FileFeed) Name() string { return "file" }

// Records implements Feed. Blank lines are skipped.
func (f *FileFeed) Records(ctx context.Context) (<-chan []byte, error) {
	rc, err := f.open()
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 64*1024), maxRecordSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			rec := make([]byte, len(line))
			copy(rec, line)

			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			f.log.WithError(err).Error("read feed")
		}
	}()
	return out, nil
}
