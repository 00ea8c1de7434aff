// Package feeds defines the per-feed validation rules, domain actions and
// match policies the import orchestrator runs with.
package feeds

import (
	"fmt"
	"sort"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/service"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
)

// Feed job names.
const (
	Payroll    = "payroll"
	Partner    = "partner"
	TrnRequest = "trn_request"
)

var fullIdentity = []models.Field{
	models.FieldFirstName,
	models.FieldLastName,
	models.FieldDateOfBirth,
	models.FieldNationalInsuranceNumber,
}

var nameAndDOB = []models.Field{
	models.FieldFirstName,
	models.FieldLastName,
	models.FieldDateOfBirth,
}

// Catalogue is the set of configured feeds keyed by job name.
type Catalogue struct {
	feeds map[string]service.Feed
}

// NewCatalogue builds the standard feeds over one person store.
//
//   - payroll: employer pension returns. Needs an unambiguous identity and
//     flags inferred matches for review. May correct surname and NINO.
//   - partner: national import partners. Needs an unambiguous identity. May
//     correct names.
//   - trn_request: self-service TRN applications. Ambiguous rows are recorded
//     as duplicates for a caseworker; nothing is updated on a match.
func NewCatalogue(persons PersonStore, trns TrnAllocator) (*Catalogue, error) {
	payroll, err := NewPersonAction(persons, trns, fullIdentity, AttrLastName, AttrNINO)
	if err != nil {
		return nil, err
	}
	partner, err := NewPersonAction(persons, trns, nameAndDOB, AttrFirstName, AttrMiddleName, AttrLastName)
	if err != nil {
		return nil, err
	}
	trnRequest, err := NewPersonAction(persons, trns, nameAndDOB)
	if err != nil {
		return nil, err
	}

	return &Catalogue{feeds: map[string]service.Feed{
		Payroll: {
			Policy: models.FeedPolicy{
				Feed:                Payroll,
				OnPotentialMatches:  models.RequireUnique,
				FlagInferredMatches: true,
			},
			Validator: Validator{Required: []models.Field{
				models.FieldLastName,
				models.FieldDateOfBirth,
				models.FieldNationalInsuranceNumber,
			}},
			Action: payroll,
		},
		Partner: {
			Policy: models.FeedPolicy{
				Feed:               Partner,
				OnPotentialMatches: models.RequireUnique,
			},
			Validator: Validator{Required: nameAndDOB},
			Action:    partner,
		},
		TrnRequest: {
			Policy: models.FeedPolicy{
				Feed:                TrnRequest,
				OnPotentialMatches:  models.RecordOnly,
				FlagInferredMatches: true,
			},
			Validator: Validator{Required: nameAndDOB},
			Action:    trnRequest,
		},
	}}, nil
}

// Lookup returns the feed registered under name.
func (c *Catalogue) Lookup(name string) (service.Feed, error) {
	f, ok := c.feeds[name]
	if !ok {
		return service.Feed{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown feed %q", name))
	}
	return f, nil
}

// Names returns the registered feed names in sorted order.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.feeds))
	for n := range c.feeds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
