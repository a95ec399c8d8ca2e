package master

import (
	"fmt"

	"github.com/limaJavier/roundrobin/pkg/catalogue"
	"github.com/limaJavier/roundrobin/pkg/milp"
	"github.com/limaJavier/roundrobin/pkg/model"
)

type Cut struct {
	Name    string
	Pattern model.Pattern
	Expr    *milp.Expr
	RHS     int
}

// NoGood excludes every pattern closer than hamming to pattern:
// sum of x over home entries - sum of x over away entries <= ones(pattern) - hamming
func NoGood(space *catalogue.PatternSpace, pattern model.Pattern, hamming int) (*milp.Expr, int) {
	expr := milp.NewExpr()
	for team := range pattern {
		for slot, home := range pattern[team] {
			if home {
				expr.Add(space.X(team, slot), 1)
			} else {
				expr.Add(space.X(team, slot), -1)
			}
		}
	}
	return expr, pattern.Ones() - hamming
}

// Ledger keeps the no-good cuts in the order their patterns were examined. Cuts are only ever appended.
type Ledger struct {
	cuts []Cut
	seen map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{cuts: make([]Cut, 0), seen: make(map[string]int)}
}

// Record builds the no-good of pattern and appends it. Recording a pattern twice is an error: its first cut should
// have made it unreachable.
func (ledger *Ledger) Record(space *catalogue.PatternSpace, pattern model.Pattern, hamming int) (Cut, error) {
	key := pattern.String()
	if position, ok := ledger.seen[key]; ok {
		return Cut{}, fmt.Errorf("pattern examined again after cut %d", position)
	}

	expr, rhs := NoGood(space, pattern, hamming)
	cut := Cut{Name: fmt.Sprintf("nogood[%d]", len(ledger.cuts)), Pattern: pattern.Clone(), Expr: expr, RHS: rhs}
	ledger.seen[key] = len(ledger.cuts)
	ledger.cuts = append(ledger.cuts, cut)
	return cut, nil
}

func (ledger *Ledger) Seen(pattern model.Pattern) bool {
	_, ok := ledger.seen[pattern.String()]
	return ok
}

func (ledger *Ledger) Len() int {
	return len(ledger.cuts)
}

// Cuts returns the recorded cuts in examination order
func (ledger *Ledger) Cuts() []Cut {
	return ledger.cuts
}
