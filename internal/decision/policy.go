package decision

import (
	"fmt"
	"math"
	"sync/atomic"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/observability"
)

// ShouldAnnounce reports whether e goes to the primary channel.
// Every displayable enriched trade qualifies.
func ShouldAnnounce(e *domain.EnrichedEvent) bool {
	return e.Displayable()
}

// Policy evaluates the secondary channel threshold. The threshold can be
// swapped at runtime while passes read it.
type Policy struct {
	threshold atomic.Uint64 // math.Float64bits
}

// NewPolicy creates a policy with the given threshold.
func NewPolicy(threshold float64) (*Policy, error) {
	p := &Policy{}
	if err := p.SetThreshold(threshold); err != nil {
		return nil, err
	}
	return p, nil
}

// NewDefaultPolicy creates a policy at DefaultSecondaryMinPrice.
func NewDefaultPolicy() *Policy {
	p := &Policy{}
	_ = p.SetThreshold(DefaultSecondaryMinPrice)
	return p
}

// Threshold returns the active threshold in SOL.
func (p *Policy) Threshold() float64 {
	return math.Float64frombits(p.threshold.Load())
}

// SetThreshold replaces the threshold. Negative or NaN values are rejected
// and leave the current threshold in place.
func (p *Policy) SetThreshold(v float64) error {
	if v < 0 || math.IsNaN(v) {
		return fmt.Errorf("%w: %v", ErrNegativeThreshold, v)
	}
	p.threshold.Store(math.Float64bits(v))
	observability.SetSecondaryThreshold(v)
	return nil
}

// QualifiesForSecondary reports whether e's display price strictly exceeds
// the threshold.
func (p *Policy) QualifiesForSecondary(e *domain.EnrichedEvent) bool {
	return qualifies(e, p.Threshold())
}

func qualifies(e *domain.EnrichedEvent, threshold float64) bool {
	return e.Displayable() && e.DisplayPrice > threshold
}

// Evaluate returns the channel routing for e together with the criteria
// checked. The dispatcher routes on it.
func (p *Policy) Evaluate(e *domain.EnrichedEvent) Verdict {
	threshold := p.Threshold()

	displayable := CriterionResult{
		Name:      "Displayable",
		Threshold: "name and image present",
		Actual:    "no event",
		Pass:      e.Displayable(),
	}
	price := CriterionResult{
		Name:      "Secondary price",
		Threshold: fmt.Sprintf("> %.2f SOL", threshold),
	}
	if e != nil {
		displayable.Actual = fmt.Sprintf("name=%t image=%t", e.Name != "", e.Image != "")
		price.Actual = fmt.Sprintf("%.2f SOL", e.DisplayPrice)
		price.Pass = e.DisplayPrice > threshold
	}

	return Verdict{
		Primary:   ShouldAnnounce(e),
		Secondary: qualifies(e, threshold),
		Criteria:  []CriterionResult{displayable, price},
	}
}
