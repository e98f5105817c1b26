package orchestrator

import (
	"strings"

	"solana-sales-bot/internal/domain"
)

// Stage names one enrichment step.
type Stage string

const (
	StagePrice       Stage = "price"
	StageRate        Stage = "rate"
	StageMarketplace Stage = "marketplace"
	StageMetadata    Stage = "metadata"
	StageRarity      Stage = "rarity"
	StageValidate    Stage = "validate"
)

// Status is the outcome of one stage.
type Status string

const (
	// StatusOK means the stage produced its value.
	StatusOK Status = "ok"
	// StatusSkipped means the record was discarded silently (noise or validation).
	StatusSkipped Status = "skipped"
	// StatusFailed means the stage failed and the record was dropped.
	StatusFailed Status = "failed"
	// StatusDegraded means the stage failed but enrichment continued without its value.
	StatusDegraded Status = "degraded"
)

// StageResult is the outcome of one stage of one pass.
type StageResult struct {
	Stage  Stage
	Status Status
	Err    error
}

// Result is the outcome of enriching one trade. Event is nil unless every
// required stage succeeded.
type Result struct {
	Event  *domain.EnrichedEvent
	Stages []StageResult
}

// Enriched reports whether the pass produced an event.
func (r *Result) Enriched() bool {
	return r != nil && r.Event != nil
}

// Stage returns the result recorded for s.
func (r *Result) Stage(s Stage) (StageResult, bool) {
	for _, sr := range r.Stages {
		if sr.Stage == s {
			return sr, true
		}
	}
	return StageResult{}, false
}

// Terminal returns the stage that ended enrichment early, if any.
func (r *Result) Terminal() (StageResult, bool) {
	for _, sr := range r.Stages {
		if sr.Status == StatusFailed || sr.Status == StatusSkipped {
			return sr, true
		}
	}
	return StageResult{}, false
}

// String renders stages as "price=ok rate=failed ...".
func (r *Result) String() string {
	parts := make([]string, 0, len(r.Stages))
	for _, sr := range r.Stages {
		parts = append(parts, string(sr.Stage)+"="+string(sr.Status))
	}
	return strings.Join(parts, " ")
}
