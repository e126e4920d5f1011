package query

import "errors"

// Status classifies the outcome of a synthesis or compilation. Unsatisfiable
// and the degraded statuses are valid terminal results, not errors.
type Status string

const (
	// StatusExact means every guarantee holds: the constraint set is a
	// fixed point and any signed terms reproduce the excluded count exactly.
	StatusExact Status = "exact"

	// StatusUnsatisfiable means no witness exists at all: the anchor
	// transition is unreachable under the given condition.
	StatusUnsatisfiable Status = "unsatisfiable"

	// StatusDegradedSynthesis means the reachability-check budget ran out
	// before the violation loop reached a fixed point. The literals
	// returned are correct but may not be minimal or complete.
	StatusDegradedSynthesis Status = "degraded_synthesis"

	// StatusDegradedCompilation means the inclusion-exclusion term budget
	// was exceeded; the emitted terms are an approximation.
	StatusDegradedCompilation Status = "degraded_compilation"
)

// Exact reports whether the status carries the full correctness guarantee.
func (s Status) Exact() bool {
	return s == StatusExact
}

// Degraded reports whether the result must be treated as approximate.
func (s Status) Degraded() bool {
	return s == StatusDegradedSynthesis || s == StatusDegradedCompilation
}

// ErrInvalidAnchor is returned when the anchor edge is not present in the
// graph. This is a caller error: no partial work is attempted.
var ErrInvalidAnchor = errors.New("anchor edge not present in graph")

// Weights are the per-literal-family costs steering remedy selection when
// several literal families would resolve a violation equally well.
type Weights struct {
	Visited    float64 `json:"visited"`
	Exclude    float64 `json:"exclude"`
	VisitedAny float64 `json:"visited_any"`
}

// DefaultWeights prefers visited literals over OR-groups over excludes.
func DefaultWeights() Weights {
	return Weights{Visited: 1.0, VisitedAny: 1.5, Exclude: 2.0}
}

func (w Weights) orDefault() Weights {
	d := DefaultWeights()
	if w.Visited <= 0 {
		w.Visited = d.Visited
	}
	if w.Exclude <= 0 {
		w.Exclude = d.Exclude
	}
	if w.VisitedAny <= 0 {
		w.VisitedAny = d.VisitedAny
	}
	return w
}

// Sanitize fills non-positive weights with defaults.
func (w Weights) Sanitize() Weights {
	return w.orDefault()
}

// Diagnostics report how much work a compilation performed. Informational
// only; they never affect the emitted constraints.
type Diagnostics struct {
	Checks   int `json:"checks"`
	Literals int `json:"literals"`
	Terms    int `json:"terms"`
}
