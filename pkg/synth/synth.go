// Package synth discovers the minimal literal set that isolates one direct
// transition of a funnel graph from every alternate route to the same
// target. It works by witness-guided fixed-point iteration: each round
// searches for a single journey that violates the constraints accumulated
// so far and patches the cheapest literal that rules it out, instead of
// enumerating all simple paths up front.
package synth

import (
	"sort"

	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

// DefaultMaxChecks bounds the reachability queries of one synthesis call.
const DefaultMaxChecks = 400

// Options tune one synthesis call.
type Options struct {
	// Weights steer remedy selection between literal families.
	Weights query.Weights

	// MaxChecks caps reachability queries; DefaultMaxChecks when zero.
	MaxChecks int

	// PreserveShape forbids literal-family rewrites: the output keeps the
	// condition's families verbatim (an exclude stays an exclude).
	PreserveShape bool
}

// Result is the outcome of Synthesize.
type Result struct {
	Status      query.Status
	Constraints query.ConstraintSet
	Diagnostics query.Diagnostics

	// Witness is the bootstrap journey proving the constraints satisfiable.
	// Empty when Status is unsatisfiable.
	Witness []string
}

// Synthesize computes the constraint set isolating the anchor transition,
// honoring an optional pre-existing condition. It returns ErrInvalidAnchor
// when the anchor edge is not in the graph. Unsatisfiable and degraded
// outcomes are reported through Result.Status, not as errors.
func Synthesize(g *graph.Graph, anchor graph.Edge, cond *query.ConstraintSet, opts Options) (*Result, error) {
	if g == nil || !g.HasEdge(anchor.From, anchor.To) {
		return nil, query.ErrInvalidAnchor
	}

	weights := opts.Weights.Sanitize()
	maxChecks := opts.MaxChecks
	if maxChecks <= 0 {
		maxChecks = DefaultMaxChecks
	}

	s := &search{
		g:       g,
		anchor:  anchor,
		span:    g.Span(anchor.From, anchor.To),
		budget:  graph.NewBudget(maxChecks),
		weights: weights,
		rewrite: !opts.PreserveShape,
	}

	condition := cond.Clone()
	condition.Normalize()
	s.cond = &condition

	out := query.ConstraintSet{}
	copyPassThrough(&out, &condition)
	s.passThroughOutOfSpan(&out)
	s.out = &out

	bootstrap, ok := s.probe(s.conditionQuery())
	if !ok {
		if s.budget.Exhausted() {
			return s.result(query.StatusDegradedSynthesis, nil), nil
		}
		return &Result{
			Status:      query.StatusUnsatisfiable,
			Diagnostics: query.Diagnostics{Checks: s.budget.Used},
		}, nil
	}
	s.bootstrap = bootstrap

	if !condition.HasLiterals() {
		s.excludeSiblingAlternates()
	}

	status := s.violationLoop()
	return s.result(status, bootstrap), nil
}

// search carries the per-call state. Nothing here outlives the call: the
// spec forbids process-wide witness caches.
type search struct {
	g         *graph.Graph
	anchor    graph.Edge
	span      map[string]bool
	budget    *graph.Budget
	weights   query.Weights
	rewrite   bool
	cond      *query.ConstraintSet
	out       *query.ConstraintSet
	bootstrap []string
}

func (s *search) result(status query.Status, witness []string) *Result {
	return &Result{
		Status:      status,
		Constraints: *s.out,
		Diagnostics: query.Diagnostics{
			Checks:   s.budget.Used,
			Literals: s.out.LiteralCount(),
		},
		Witness: witness,
	}
}

// passThroughOutOfSpan copies condition literals that cannot occur between
// the anchor endpoints. They are enforced by the data source on the full
// journey and are not discriminable inside the graph span.
func (s *search) passThroughOutOfSpan(out *query.ConstraintSet) {
	for _, v := range s.cond.Visited {
		if !s.span[v] {
			out.AddVisited(v)
		}
	}
	for _, x := range s.cond.Exclude {
		if !s.span[x] {
			out.AddExclude(x)
		}
	}
	for _, grp := range s.cond.VisitedAny {
		if len(s.inSpan(grp)) == 0 {
			out.AddGroup(grp)
		}
	}
}

// excludeSiblingAlternates is the unconditioned direct-edge special case:
// every other predecessor of the target reachable from the source is an
// alternate last hop and is excluded eagerly for determinism.
func (s *search) excludeSiblingAlternates() {
	reach := s.g.Descendants(s.anchor.From)
	for _, p := range s.g.Predecessors(s.anchor.To) {
		if p == s.anchor.From || p == s.anchor.To {
			continue
		}
		if reach[p] {
			s.out.AddExclude(p)
		}
	}
}

// violationLoop runs full passes over the condition's literals until one
// pass finds no violating witness, or the check budget runs out.
func (s *search) violationLoop() query.Status {
	for {
		progressed, degraded := s.pass()
		if degraded {
			return query.StatusDegradedSynthesis
		}
		if !progressed {
			return query.StatusExact
		}
	}
}

func (s *search) pass() (progressed, degraded bool) {
	// (a) Missing required visited.
	for _, v := range s.cond.Visited {
		if !s.span[v] || s.isEndpoint(v) || s.out.HasVisited(v) {
			continue
		}
		wq := s.currentQuery()
		wq.Avoid[v] = true
		witness, found := s.probe(wq)
		if s.budget.Exhausted() && !found {
			return false, true
		}
		if !found {
			continue // structurally enforced, no literal needed
		}
		s.remedyMissingVisited(v, witness)
		return true, false
	}

	// (b) Missing visitedAny group.
	for _, grp := range s.cond.VisitedAny {
		members := s.inSpan(grp)
		if len(members) == 0 || s.out.HasGroup(grp) || s.groupCovered(members) {
			continue
		}
		wq := s.currentQuery()
		for _, m := range members {
			wq.Avoid[m] = true
		}
		witness, found := s.probe(wq)
		if s.budget.Exhausted() && !found {
			return false, true
		}
		if !found {
			continue
		}
		s.remedyMissingGroup(grp, members, witness)
		return true, false
	}

	// (c) Forbidden literal included.
	for _, x := range s.cond.Exclude {
		if !s.span[x] || s.isEndpoint(x) || s.out.HasExclude(x) {
			continue
		}
		wq := s.currentQuery()
		wq.Require = append(wq.Require, x)
		witness, found := s.probe(wq)
		if s.budget.Exhausted() && !found {
			return false, true
		}
		if !found {
			continue
		}
		s.remedyForbiddenIncluded(x, witness)
		return true, false
	}

	return false, false
}

// remedyMissingVisited resolves a journey that skips required node v:
// either require v outright or cut the route at its first divergence from
// the bootstrap witness, whichever family is cheaper.
func (s *search) remedyMissingVisited(v string, witness []string) {
	cost := s.weights.Visited
	if div, ok := s.divergenceExclude(witness); ok && s.weights.Exclude < cost {
		s.out.AddExclude(div)
		return
	}
	s.out.AddVisited(v)
}

// remedyMissingGroup resolves a journey that dodges every member of an
// OR-group. The group itself is the default remedy; when rewriting is
// permitted and strictly cheaper, the violating sibling branches are
// excluded instead.
func (s *search) remedyMissingGroup(grp, members []string, witness []string) {
	groupCost := s.weights.VisitedAny

	if div, ok := s.divergenceExclude(witness); ok && s.weights.Exclude < groupCost {
		s.out.AddExclude(div)
		return
	}

	if s.rewrite {
		if bad, ok := s.violatingSiblings(witness, members); ok {
			if c := s.weights.Exclude * float64(len(bad)); c < groupCost {
				for _, h := range bad {
					s.out.AddExclude(h)
				}
				return
			}
		}
	}
	s.out.AddGroup(grp)
}

// remedyForbiddenIncluded resolves a journey that passes a forbidden node:
// exclude it, or, when rewriting is permitted and cheaper, require one of
// the sibling first hops that provably cannot reach the forbidden node.
func (s *search) remedyForbiddenIncluded(x string, witness []string) {
	excludeCost := s.weights.Exclude

	if s.rewrite && s.weights.VisitedAny < excludeCost {
		if kept, ok := s.keptSiblings(witness, x); ok {
			s.out.AddGroup(kept)
			return
		}
	}
	s.out.AddExclude(x)
}

// divergenceExclude returns the first node where witness departs from the
// bootstrap journey, when excluding it cannot harm the bootstrap itself.
func (s *search) divergenceExclude(witness []string) (string, bool) {
	div, ok := graph.FirstDivergence(s.bootstrap, witness)
	if !ok || div == s.anchor.From || div == s.anchor.To {
		return "", false
	}
	for _, n := range s.bootstrap {
		if n == div {
			return "", false
		}
	}
	if s.out.HasExclude(div) {
		return "", false
	}
	return div, true
}

// violatingSiblings classifies the successors of the witness's divergence
// split: a sibling is violating when some journey through it still dodges
// every group member. Returns false when excluding the violating set would
// also cut the bootstrap journey.
func (s *search) violatingSiblings(witness, members []string) ([]string, bool) {
	split, ok := s.divergenceSplit(witness)
	if !ok {
		return nil, false
	}
	onBootstrap := map[string]bool{}
	for _, n := range s.bootstrap {
		onBootstrap[n] = true
	}

	var bad []string
	for _, h := range s.g.Successors(split) {
		if !s.span[h] || h == s.anchor.To {
			continue
		}
		wq := s.currentQuery()
		for _, m := range members {
			wq.Avoid[m] = true
		}
		wq.Require = append(wq.Require, h)
		if _, found := s.probe(wq); found {
			if onBootstrap[h] {
				return nil, false
			}
			bad = append(bad, h)
		}
	}
	if len(bad) == 0 {
		return nil, false
	}
	return bad, true
}

// keptSiblings classifies the successors of the witness's divergence split
// against a forbidden node: a sibling is kept when no journey through it
// can reach the forbidden node. The kept set is usable as a visitedAny
// group only when it keeps the bootstrap journey alive and kills the
// current witness.
func (s *search) keptSiblings(witness []string, forbidden string) ([]string, bool) {
	split, ok := s.divergenceSplit(witness)
	if !ok {
		return nil, false
	}

	var kept []string
	for _, h := range s.g.Successors(split) {
		if !s.span[h] || h == s.anchor.To || h == forbidden || s.out.HasExclude(h) {
			continue
		}
		wq := s.currentQuery()
		wq.Require = append(wq.Require, h, forbidden)
		if _, found := s.probe(wq); !found && !s.budget.Exhausted() {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 || s.out.HasGroup(kept) {
		return nil, false
	}

	bootstrapAlive := false
	for _, k := range kept {
		for _, n := range s.bootstrap {
			if n == k {
				bootstrapAlive = true
			}
		}
	}
	if !bootstrapAlive {
		return nil, false
	}
	for _, k := range kept {
		for _, n := range witness {
			if n == k {
				return nil, false // would not kill the violating journey
			}
		}
	}
	sort.Strings(kept)
	return kept, true
}

// divergenceSplit returns the node at which the witness leaves the
// bootstrap journey: the last node the two still share.
func (s *search) divergenceSplit(witness []string) (string, bool) {
	i := 0
	for i < len(s.bootstrap) && i < len(witness) && s.bootstrap[i] == witness[i] {
		i++
	}
	if i == 0 || i >= len(witness) {
		return "", false
	}
	return witness[i-1], true
}

// conditionQuery is the bootstrap question: a journey honoring the raw
// condition, before any synthesized literal exists.
func (s *search) conditionQuery() graph.WitnessQuery {
	wq := graph.WitnessQuery{
		From:  s.anchor.From,
		To:    s.anchor.To,
		Avoid: map[string]bool{},
	}
	for _, v := range s.cond.Visited {
		if s.span[v] && !s.isEndpoint(v) {
			wq.Require = append(wq.Require, v)
		}
	}
	for _, x := range s.cond.Exclude {
		if s.span[x] {
			wq.Avoid[x] = true
		}
	}
	for _, grp := range s.cond.VisitedAny {
		if members := s.inSpan(grp); len(members) > 0 {
			wq.RequireAny = append(wq.RequireAny, members)
		}
	}
	return wq
}

// currentQuery asks for a journey consistent with the constraints
// synthesized so far.
func (s *search) currentQuery() graph.WitnessQuery {
	wq := graph.WitnessQuery{
		From:  s.anchor.From,
		To:    s.anchor.To,
		Avoid: map[string]bool{},
	}
	for _, v := range s.out.Visited {
		if s.span[v] && !s.isEndpoint(v) {
			wq.Require = append(wq.Require, v)
		}
	}
	for _, x := range s.out.Exclude {
		if s.span[x] {
			wq.Avoid[x] = true
		}
	}
	for _, grp := range s.out.VisitedAny {
		if members := s.inSpan(grp); len(members) > 0 {
			wq.RequireAny = append(wq.RequireAny, members)
		}
	}
	return wq
}

func (s *search) probe(wq graph.WitnessQuery) ([]string, bool) {
	if s.budget.Exhausted() {
		return nil, false
	}
	return s.g.FindWitness(wq, s.budget)
}

func (s *search) inSpan(ids []string) []string {
	var out []string
	for _, id := range ids {
		if s.span[id] && !s.isEndpoint(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *search) isEndpoint(id string) bool {
	return id == s.anchor.From || id == s.anchor.To
}

// groupCovered reports whether some member is already a visited literal,
// which enforces the OR-group outright.
func (s *search) groupCovered(members []string) bool {
	for _, m := range members {
		if s.out.HasVisited(m) {
			return true
		}
	}
	return false
}

func copyPassThrough(dst, src *query.ConstraintSet) {
	if len(src.Case) > 0 {
		dst.Case = map[string]string{}
		for k, v := range src.Case {
			dst.Case[k] = v
		}
	}
	if len(src.Context) > 0 {
		dst.Context = map[string]string{}
		for k, v := range src.Context {
			dst.Context[k] = v
		}
	}
}
