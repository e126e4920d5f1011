package rewrite

import (
	"math/bits"
	"sort"
	"strings"

	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

// DefaultTermBudget caps the branch subsets one compilation may enumerate.
const DefaultTermBudget = 64

// maxBranches keeps the subset bitmask within sane bounds; anything larger
// is reported as degraded before enumeration starts.
const maxBranches = 16

// Branch is one competing route out of the split: its first hop and the
// separator node every journey down that branch must cross.
type Branch struct {
	Hop       string
	Separator string
}

// Compilation is the output of the inclusion-exclusion compiler: signed
// terms sharing the caller's from/to anchor. A minus term subtracts the
// journeys matching its visited set; a plus term adds back an
// over-subtracted overlap.
type Compilation struct {
	Terms       []query.SignedTerm
	Status      query.Status
	Diagnostics query.Diagnostics
}

// CompileHops derives each branch's separator and compiles. keptPath
// context for the separator analysis is the direct anchor transition plus,
// when the merge lies beyond the target, any route target→merge.
func CompileHops(g *graph.Graph, source, target, merge string, hops []string, termBudget int) *Compilation {
	keptPath := []string{source, target}
	if merge != target {
		if leg, ok := g.FindWitness(graph.WitnessQuery{From: target, To: merge}, nil); ok {
			keptPath = append(keptPath, leg[1:]...)
		}
	}

	branches := make([]Branch, 0, len(hops))
	for _, hop := range hops {
		branches = append(branches, Branch{
			Hop:       hop,
			Separator: FindSeparator(g, source, hop, merge, keptPath),
		})
	}
	return Compile(g, source, merge, branches, termBudget)
}

// Compile emits one candidate term per non-empty branch subset S, with
// coefficient (-1)^|S| on the final query. Subsets whose separator
// requirements provably cannot co-occur on any source→merge journey are
// pruned (their count is zero); terms whose matched-journey set provably
// equals a superset term's are folded together (dominance elimination).
// Exceeding the term budget yields a degraded result, never a silent
// truncation.
func Compile(g *graph.Graph, source, merge string, branches []Branch, termBudget int) *Compilation {
	if termBudget <= 0 {
		termBudget = DefaultTermBudget
	}
	if len(branches) == 0 {
		return &Compilation{Status: query.StatusExact}
	}

	sorted := append([]Branch(nil), branches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hop < sorted[j].Hop })

	if len(sorted) > maxBranches {
		return &Compilation{Status: query.StatusDegradedCompilation}
	}

	span := g.Span(source, merge)
	checks := graph.NewBudget(8*termBudget + 64)

	type candidate struct {
		key      string
		required []string
		coef     int
	}
	byKey := map[string]*candidate{}
	var order []*candidate

	n := len(sorted)
	degraded := false
	enumerated := 0

	for size := 1; size <= n && !degraded; size++ {
		for mask := 1; mask < (1 << n); mask++ {
			if bits.OnesCount(uint(mask)) != size {
				continue
			}
			enumerated++
			if enumerated > termBudget {
				degraded = true
				break
			}

			var required []string
			for i := 0; i < n; i++ {
				if mask&(1<<i) != 0 {
					required = append(required, sorted[i].Separator)
				}
			}
			required = dedupe(required)

			if !canCoOccur(g, source, merge, required, span, checks) {
				continue
			}

			coef := 1
			if size%2 == 1 {
				coef = -1
			}
			key := strings.Join(required, ",")
			if c, ok := byKey[key]; ok {
				c.coef += coef
				continue
			}
			c := &candidate{key: key, required: required, coef: coef}
			byKey[key] = c
			order = append(order, c)
		}
	}

	// Dominance elimination: fold a superset term into the first subset
	// term whose matched journeys provably always carry the extras too.
	sort.SliceStable(order, func(i, j int) bool {
		if len(order[i].required) != len(order[j].required) {
			return len(order[i].required) < len(order[j].required)
		}
		return order[i].key < order[j].key
	})
	alive := make([]bool, len(order))
	for i := range alive {
		alive[i] = true
	}
	for j := range order {
		for i := 0; i < j; i++ {
			if !alive[i] || !alive[j] {
				continue
			}
			if !isSubset(order[i].required, order[j].required) {
				continue
			}
			if impliesExtras(g, source, merge, order[i].required, order[j].required, span, checks) {
				order[i].coef += order[j].coef
				alive[j] = false
				break
			}
		}
	}

	out := &Compilation{Status: query.StatusExact}
	if degraded {
		out.Status = query.StatusDegradedCompilation
	}
	for i, c := range order {
		if !alive[i] || c.coef == 0 {
			continue
		}
		if c.coef != -1 && c.coef != 1 {
			// A folded coefficient outside the unit signs cannot be
			// expressed as minus/plus clauses.
			out.Status = query.StatusDegradedCompilation
			continue
		}
		out.Terms = append(out.Terms, query.SignedTerm{
			Coefficient: query.Coefficient(c.coef),
			Constraints: query.ConstraintSet{Visited: append([]string(nil), c.required...)},
		})
	}
	out.Diagnostics = query.Diagnostics{Checks: checks.Used, Terms: len(out.Terms)}
	return out
}

// canCoOccur reports whether some source→merge journey can satisfy every
// in-span required node. Nodes outside the span (condition literals
// upstream of the source) never prune: the graph cannot witness them.
// When the internal check budget runs out the subset is kept: an
// unprunable zero-count term costs a clause but never exactness.
func canCoOccur(g *graph.Graph, source, merge string, required []string, span map[string]bool, checks *graph.Budget) bool {
	inSpan := filterSpan(required, span, source, merge)
	if len(inSpan) == 0 {
		return true
	}
	if checks.Exhausted() {
		return true
	}
	_, ok := g.FindWitness(graph.WitnessQuery{From: source, To: merge, Require: inSpan}, checks)
	if !ok && checks.Exhausted() {
		return true
	}
	return ok
}

// impliesExtras reports whether every journey matching `sub` necessarily
// also crosses each extra node of `super`, making the two matched sets
// identical.
func impliesExtras(g *graph.Graph, source, merge string, sub, super []string, span map[string]bool, checks *graph.Budget) bool {
	subInSpan := filterSpan(sub, span, source, merge)
	for _, x := range super {
		if containsStr(sub, x) {
			continue
		}
		if !span[x] {
			return false // cannot prove anything about out-of-span nodes
		}
		if checks.Exhausted() {
			return false
		}
		avoid := map[string]bool{x: true}
		_, found := g.FindWitness(graph.WitnessQuery{From: source, To: merge, Require: subInSpan, Avoid: avoid}, checks)
		if found || checks.Exhausted() {
			return false
		}
	}
	return true
}

func filterSpan(ids []string, span map[string]bool, source, merge string) []string {
	var out []string
	for _, id := range ids {
		if span[id] && id != source && id != merge {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(list []string) []string {
	sort.Strings(list)
	out := list[:0]
	for i, v := range list {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func isSubset(sub, super []string) bool {
	if len(sub) >= len(super) {
		return false
	}
	for _, s := range sub {
		if !containsStr(super, s) {
			return false
		}
	}
	return true
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
