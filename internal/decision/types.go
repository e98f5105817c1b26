// Package decision holds the business filters that gate which channels
// announce an enriched trade.
package decision

import "errors"

// DefaultSecondaryMinPrice is the display price (SOL) a trade must exceed
// to be announced on the secondary channel.
const DefaultSecondaryMinPrice = 10.0

// ErrNegativeThreshold is returned when a threshold below zero is configured.
var ErrNegativeThreshold = errors.New("decision: threshold must not be negative")

// CriterionResult represents pass/fail for one filter criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Verdict is the channel routing for one enriched trade.
type Verdict struct {
	Primary   bool
	Secondary bool
	Criteria  []CriterionResult
}
