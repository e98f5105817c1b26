package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/logging"
)

// LogSender writes announcements to the log instead of a channel. Used for
// dry runs.
type LogSender struct {
	name string
	log  *logrus.Entry
}

var (
	_ PrimarySender   = (*LogSender)(nil)
	_ SecondarySender = (*LogSender)(nil)
)

// NewLogSender creates a sender reporting as name.
func NewLogSender(name string, log *logrus.Entry) *LogSender {
	if log == nil {
		log = logging.WithComponent("notify")
	}
	return &LogSender{name: name, log: log.WithField("channel", name)}
}

func (s *LogSender) Name() string { return s.name }

func (s *LogSender) SendPrimary(_ context.Context, p PrimaryPayload) error {
	s.log.WithFields(logrus.Fields{
		"signature": p.Signature,
		"mint":      p.AssetID,
		"name":      p.Name,
		"label":     p.Label,
		"price":     priceLine(p.DisplayPrice, p.FiatPrice),
		"floor":     p.FloorPrice,
	}).Info("dry-run primary alert")
	return nil
}

func (s *LogSender) SendSecondary(_ context.Context, p SecondaryPayload) error {
	s.log.WithFields(logrus.Fields{
		"signature": p.Signature,
		"artifact":  p.Artifact.URL,
		"bytes":     len(p.Artifact.Data),
	}).Info("dry-run secondary alert: " + p.Text())
	return nil
}
