package catalogue

import "github.com/limaJavier/roundrobin/pkg/model"

// PatternLevel reports whether a record only depends on the home/away pattern, so the master can encode it over
// x[team,slot]. Every other record needs the pairing variables and is left to the certifier.
func PatternLevel(constraint model.Constraint, teams int) bool {
	switch c := constraint.(type) {
	case model.CA1, model.BR1, model.BR2, model.FA2:
		return true
	case model.CA4:
		if c.Mode == model.HomeAway {
			return false
		}
		for _, team := range c.Teams1 {
			if !covers(team, c.Teams2, teams) {
				return false
			}
		}
		return true
	}
	return false
}

// Split partitions the records of an instance into pattern-level and pairing-level ones
func Split(instance model.Instance) (pattern []model.Constraint, pairing []model.Constraint) {
	pattern, pairing = make([]model.Constraint, 0), make([]model.Constraint, 0)
	for _, constraint := range instance.Constraints {
		if PatternLevel(constraint, instance.NumTeams()) {
			pattern = append(pattern, constraint)
		} else {
			pairing = append(pairing, constraint)
		}
	}
	return pattern, pairing
}
