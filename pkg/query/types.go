package query

import (
	"sort"
	"strings"
)

// Coefficient is the sign of an inclusion-exclusion term on the final
// query: -1 subtracts the term's journey count, +1 adds it back.
type Coefficient int

const (
	Minus Coefficient = -1
	Plus  Coefficient = 1
)

// Valid reports whether the coefficient is one of the two legal signs.
func (c Coefficient) Valid() bool {
	return c == Minus || c == Plus
}

// SignedTerm is a positive sub-query paired with a sign. The term shares
// the outer query's from/to anchor; only its own literals are carried here.
type SignedTerm struct {
	Coefficient Coefficient   `json:"coefficient"`
	Constraints ConstraintSet `json:"constraints"`
}

// ConstraintSet is the literal payload of a funnel query. All collections
// are order-irrelevant and duplicate-free once normalized; Normalize puts
// the set in canonical form so permuting inputs never changes equality.
type ConstraintSet struct {
	Visited    []string          `json:"visited,omitempty"`
	Exclude    []string          `json:"exclude,omitempty"`
	VisitedAny [][]string        `json:"visited_any,omitempty"`
	Case       map[string]string `json:"case,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
	Terms      []SignedTerm      `json:"terms,omitempty"`
}

// IsZero reports whether the set carries no constraints of any kind.
func (cs *ConstraintSet) IsZero() bool {
	if cs == nil {
		return true
	}
	return len(cs.Visited) == 0 && len(cs.Exclude) == 0 && len(cs.VisitedAny) == 0 &&
		len(cs.Case) == 0 && len(cs.Context) == 0 && len(cs.Terms) == 0
}

// HasLiterals reports whether any node literal (visited, exclude,
// visitedAny) is present. Case/context pairs are opaque pass-through data
// and do not count.
func (cs *ConstraintSet) HasLiterals() bool {
	if cs == nil {
		return false
	}
	return len(cs.Visited) > 0 || len(cs.Exclude) > 0 || len(cs.VisitedAny) > 0
}

// LiteralCount returns the number of node literals.
func (cs *ConstraintSet) LiteralCount() int {
	if cs == nil {
		return 0
	}
	return len(cs.Visited) + len(cs.Exclude) + len(cs.VisitedAny)
}

// HasVisited reports whether id is a visited literal.
func (cs *ConstraintSet) HasVisited(id string) bool {
	return containsString(cs.Visited, id)
}

// HasExclude reports whether id is an exclude literal.
func (cs *ConstraintSet) HasExclude(id string) bool {
	return containsString(cs.Exclude, id)
}

// HasGroup reports whether an identical visitedAny group is present.
func (cs *ConstraintSet) HasGroup(group []string) bool {
	key := groupKey(group)
	for _, g := range cs.VisitedAny {
		if groupKey(g) == key {
			return true
		}
	}
	return false
}

// AddVisited inserts a visited literal, idempotently.
func (cs *ConstraintSet) AddVisited(id string) {
	if !cs.HasVisited(id) {
		cs.Visited = append(cs.Visited, id)
		sort.Strings(cs.Visited)
	}
}

// AddExclude inserts an exclude literal, idempotently.
func (cs *ConstraintSet) AddExclude(id string) {
	if !cs.HasExclude(id) {
		cs.Exclude = append(cs.Exclude, id)
		sort.Strings(cs.Exclude)
	}
}

// AddGroup inserts a visitedAny OR-group, idempotently.
func (cs *ConstraintSet) AddGroup(group []string) {
	if len(group) == 0 || cs.HasGroup(group) {
		return
	}
	g := append([]string(nil), group...)
	sort.Strings(g)
	cs.VisitedAny = append(cs.VisitedAny, g)
	sortGroups(cs.VisitedAny)
}

// Clone returns a deep copy.
func (cs *ConstraintSet) Clone() ConstraintSet {
	if cs == nil {
		return ConstraintSet{}
	}
	out := ConstraintSet{
		Visited: append([]string(nil), cs.Visited...),
		Exclude: append([]string(nil), cs.Exclude...),
	}
	for _, g := range cs.VisitedAny {
		out.VisitedAny = append(out.VisitedAny, append([]string(nil), g...))
	}
	if cs.Case != nil {
		out.Case = make(map[string]string, len(cs.Case))
		for k, v := range cs.Case {
			out.Case[k] = v
		}
	}
	if cs.Context != nil {
		out.Context = make(map[string]string, len(cs.Context))
		for k, v := range cs.Context {
			out.Context[k] = v
		}
	}
	for _, t := range cs.Terms {
		out.Terms = append(out.Terms, SignedTerm{Coefficient: t.Coefficient, Constraints: t.Constraints.Clone()})
	}
	return out
}

// Normalize sorts and deduplicates every collection in place, recursively
// through signed terms, yielding the canonical representation.
func (cs *ConstraintSet) Normalize() {
	cs.Visited = dedupeSorted(cs.Visited)
	cs.Exclude = dedupeSorted(cs.Exclude)

	seen := map[string]bool{}
	groups := cs.VisitedAny[:0]
	for _, g := range cs.VisitedAny {
		g = dedupeSorted(g)
		key := groupKey(g)
		if len(g) == 0 || seen[key] {
			continue
		}
		seen[key] = true
		groups = append(groups, g)
	}
	cs.VisitedAny = groups
	sortGroups(cs.VisitedAny)

	for i := range cs.Terms {
		cs.Terms[i].Constraints.Normalize()
	}
	sort.SliceStable(cs.Terms, func(i, j int) bool {
		a, b := &cs.Terms[i], &cs.Terms[j]
		if a.Coefficient != b.Coefficient {
			return a.Coefficient < b.Coefficient
		}
		return groupKey(a.Constraints.Visited) < groupKey(b.Constraints.Visited)
	})
}

// Equal compares two sets structurally after normalization. Both receivers
// are cloned first, so neither input is mutated.
func (cs *ConstraintSet) Equal(other *ConstraintSet) bool {
	a := cs.Clone()
	b := other.Clone()
	a.Normalize()
	b.Normalize()

	if !equalStrings(a.Visited, b.Visited) || !equalStrings(a.Exclude, b.Exclude) {
		return false
	}
	if len(a.VisitedAny) != len(b.VisitedAny) {
		return false
	}
	for i := range a.VisitedAny {
		if !equalStrings(a.VisitedAny[i], b.VisitedAny[i]) {
			return false
		}
	}
	if !equalMaps(a.Case, b.Case) || !equalMaps(a.Context, b.Context) {
		return false
	}
	if len(a.Terms) != len(b.Terms) {
		return false
	}
	for i := range a.Terms {
		if a.Terms[i].Coefficient != b.Terms[i].Coefficient {
			return false
		}
		if !a.Terms[i].Constraints.Equal(&b.Terms[i].Constraints) {
			return false
		}
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func dedupeSorted(list []string) []string {
	if len(list) == 0 {
		return list
	}
	sort.Strings(list)
	out := list[:1]
	for _, v := range list[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func sortGroups(groups [][]string) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groupKey(groups[i]) < groupKey(groups[j])
	})
}

func groupKey(group []string) string {
	g := append([]string(nil), group...)
	sort.Strings(g)
	return strings.Join(g, ",")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
