package models

// PotentialMatchPolicy decides what happens to a row that matched two or more
// persons.
type PotentialMatchPolicy string

const (
	// RecordOnly records the row as a successful duplicate without applying it.
	RecordOnly PotentialMatchPolicy = "record_only"
	// RequireUnique fails the row; the feed needs an unambiguous identity.
	RequireUnique PotentialMatchPolicy = "require_unique"
)

// FeedPolicy is the per-feed configuration the orchestrator consults.
type FeedPolicy struct {
	Feed               string
	OnPotentialMatches PotentialMatchPolicy
	// FlagInferredMatches marks definite matches found through inferred
	// criteria (not the record's TRN) as duplicates needing review.
	FlagInferredMatches bool
}
