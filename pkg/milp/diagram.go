package milp

import (
	"cmp"
	"math"
	"slices"
)

const (
	falseNode = 0
	trueNode  = -1
	unbounded = math.MaxInt / 4
)

type weighted struct {
	literal int
	weight  int
}

// interval holds the bounds [low, high] for which every remaining suffix of a constraint behaves like node
type interval struct {
	low, high int
	node      int
}

// diagram translates sum(w*l) >= bound, every w positive, into clauses through a reduced decision diagram. Nodes are
// shared between bounds with the same suffix function by memoising the interval of bounds each node decides.
// Every inner node gets a fresh literal that implies its function, so the clauses only constrain the original
// literals to the assignments satisfying the constraint.
type diagram struct {
	encoding *encoding
	terms    []weighted
	// rest[i] is the sum of the weights of terms[i:]
	rest    []int
	memo    [][]interval
	clauses [][]int
}

func newDiagram(encoding *encoding, terms []weighted) *diagram {
	terms = slices.Clone(terms)
	slices.SortStableFunc(terms, func(a, b weighted) int {
		return cmp.Compare(b.weight, a.weight)
	})

	rest := make([]int, len(terms)+1)
	for i := len(terms) - 1; i >= 0; i-- {
		rest[i] = rest[i+1] + terms[i].weight
	}
	return &diagram{
		encoding: encoding,
		terms:    terms,
		rest:     rest,
		memo:     make([][]interval, len(terms)+1),
	}
}

func (diagram *diagram) translate(bound int) [][]int {
	root := diagram.build(0, bound)
	switch root.node {
	case trueNode:
		return nil
	case falseNode:
		return [][]int{{}}
	}
	return append(diagram.clauses, []int{root.node})
}

func (diagram *diagram) build(i int, bound int) interval {
	if bound <= 0 {
		return interval{low: -unbounded, high: 0, node: trueNode}
	}
	if bound > diagram.rest[i] {
		return interval{low: diagram.rest[i] + 1, high: unbounded, node: falseNode}
	}
	for _, known := range diagram.memo[i] {
		if known.low <= bound && bound <= known.high {
			return known
		}
	}

	term := diagram.terms[i]
	skip := diagram.build(i+1, bound)
	take := diagram.build(i+1, bound-term.weight)
	result := interval{
		low:  max(skip.low, take.low+term.weight),
		high: min(skip.high, take.high+term.weight),
		node: skip.node,
	}
	if skip.node != take.node {
		result.node = diagram.encoding.fresh()
		diagram.implies(result.node, -term.literal, take.node)
		diagram.implies(result.node, term.literal, skip.node)
	}
	diagram.memo[i] = append(diagram.memo[i], result)
	return result
}

// implies adds node ∧ ¬literal → child
func (diagram *diagram) implies(node, literal, child int) {
	switch child {
	case trueNode:
	case falseNode:
		diagram.clauses = append(diagram.clauses, []int{-node, literal})
	default:
		diagram.clauses = append(diagram.clauses, []int{-node, literal, child})
	}
}
