// Package qualify decides whether an engagement sample is substantial enough
// to count as a view. Pure decision logic, no I/O; thresholds come from
// configuration so per-kind tuning never touches this algorithm.
package qualify

import "github.com/streamnestapp/streamnest-server/internal/domain"

// Rule is the qualification threshold for one media kind.
// A sample qualifies when it meets ANY enabled criterion.
type Rule struct {
	// MinDurationMs qualifies samples watched at least this long. 0 disables.
	MinDurationMs int64
	// MinProgressPct qualifies samples past this percentage. 0 disables.
	MinProgressPct float64
	// CompletionCounts qualifies samples flagged complete by the client.
	CompletionCounts bool
}

// Engine evaluates samples against a per-kind rule table.
type Engine struct {
	rules    map[domain.MediaKind]Rule
	fallback Rule
}

// NewEngine creates an engine with the given rule table. Kinds missing from
// the table use the fallback rule.
func NewEngine(rules map[domain.MediaKind]Rule, fallback Rule) *Engine {
	return &Engine{rules: rules, fallback: fallback}
}

// DefaultEngine returns an engine with the stock thresholds: video and audio
// count at 3s watched, 25% progress, or completion; paged content (ebooks)
// counts at 5s watched only.
func DefaultEngine() *Engine {
	streaming := Rule{MinDurationMs: 3000, MinProgressPct: 25, CompletionCounts: true}
	return NewEngine(map[domain.MediaKind]Rule{
		domain.MediaKindVideo: streaming,
		domain.MediaKindAudio: streaming,
		domain.MediaKindEbook: {MinDurationMs: 5000},
	}, streaming)
}

// Rule returns the rule applied to the given kind.
func (e *Engine) Rule(kind domain.MediaKind) Rule {
	if r, ok := e.rules[kind]; ok {
		return r
	}
	return e.fallback
}

// Qualifies reports whether the sample counts as a view of the given kind.
// A sample with zero duration and zero progress never qualifies: completion
// claims require at least one non-zero engagement signal.
func (e *Engine) Qualifies(kind domain.MediaKind, sample domain.EngagementSample) bool {
	if sample.DurationMs <= 0 && sample.ProgressPct <= 0 {
		return false
	}

	r := e.Rule(kind)
	if r.MinDurationMs > 0 && sample.DurationMs >= r.MinDurationMs {
		return true
	}
	if r.MinProgressPct > 0 && sample.ProgressPct >= r.MinProgressPct {
		return true
	}
	return r.CompletionCounts && sample.IsComplete
}
