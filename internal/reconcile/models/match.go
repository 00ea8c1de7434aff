package models

import id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"

// MatchOutcome classifies how many distinct persons an incoming record matched.
type MatchOutcome string

const (
	NoMatches        MatchOutcome = "no_matches"
	DefiniteMatch    MatchOutcome = "definite_match"
	PotentialMatches MatchOutcome = "potential_matches"
)

// ClassifyMatches maps a count of distinct matched persons onto an outcome.
func ClassifyMatches(distinct int) MatchOutcome {
	switch {
	case distinct <= 0:
		return NoMatches
	case distinct == 1:
		return DefiniteMatch
	default:
		return PotentialMatches
	}
}

// CriterionName identifies a match criterion.
type CriterionName string

const (
	CriterionNINOAndDOB  CriterionName = "nino_and_dob"
	CriterionNameAndDOB  CriterionName = "name_and_dob"
	CriterionNINO        CriterionName = "nino"
	CriterionExplicitTrn CriterionName = "explicit_trn"
)

// PersonMatch records one matched person and every criterion it satisfied,
// in priority order.
type PersonMatch struct {
	PersonID id.PersonID
	Criteria []CriterionName
}

// MatchResult is the evaluator's answer for one record.
type MatchResult struct {
	Outcome MatchOutcome
	// Matches holds distinct persons in first-hit order.
	Matches []PersonMatch
	// Explicit is true when the match came from the record's own TRN rather
	// than inferred criteria.
	Explicit bool
}

// PersonIDs returns the distinct matched ids in first-hit order.
func (r MatchResult) PersonIDs() []id.PersonID {
	ids := make([]id.PersonID, 0, len(r.Matches))
	for _, m := range r.Matches {
		ids = append(ids, m.PersonID)
	}
	return ids
}

// Single returns the matched person for a DefiniteMatch.
func (r MatchResult) Single() (id.PersonID, bool) {
	if r.Outcome != DefiniteMatch || len(r.Matches) != 1 {
		return id.PersonID{}, false
	}
	return r.Matches[0].PersonID, true
}
