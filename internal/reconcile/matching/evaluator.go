// Package matching decides which existing persons an incoming record refers
// to, using a fixed hierarchy of exact-match criteria.
package matching

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/requestcontext"
)

// Evaluator applies the criteria hierarchy against a CandidateStore.
// It never writes and is safe for concurrent use.
type Evaluator struct {
	store    CandidateStore
	criteria []Criterion
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Evaluator)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithCriteria replaces DefaultCriteria.
func WithCriteria(criteria []Criterion) Option {
	return func(e *Evaluator) {
		e.criteria = criteria
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Evaluator) {
		e.tracer = tracer
	}
}

func New(store CandidateStore, opts ...Option) (*Evaluator, error) {
	if store == nil {
		return nil, fmt.Errorf("candidate store is required")
	}
	e := &Evaluator{
		store:    store,
		criteria: DefaultCriteria,
		tracer:   otel.Tracer("reconcile/matching"),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, c := range e.criteria {
		if len(c.Fields) == 0 || c.Find == nil {
			return nil, fmt.Errorf("criterion %q needs fields and a finder", c.Name)
		}
	}
	return e, nil
}

// Evaluate classifies rec against existing persons.
//
// A record TRN held by exactly one active person wins outright. A TRN held
// only by deactivated persons is a CodeDeactivated error. Otherwise every
// applicable criterion is queried and the distinct active persons found are
// classified by count. CandidateStore failures are returned as
// CodeUnavailable errors and never reported as NoMatches.
func (e *Evaluator) Evaluate(ctx context.Context, rec models.IncomingRecord) (models.MatchResult, error) {
	ctx, span := e.tracer.Start(ctx, "matching.Evaluate", trace.WithAttributes(
		attribute.Int("row", rec.RowNumber),
	))
	defer span.End()

	if rec.Has(models.FieldTrn) {
		res, ok, err := e.explicit(ctx, rec.Trn)
		if err != nil {
			return models.MatchResult{}, err
		}
		if ok {
			span.SetAttributes(attribute.String("outcome", string(res.Outcome)), attribute.Bool("explicit", true))
			return res, nil
		}
	}

	var matches []models.PersonMatch
	index := map[id.PersonID]int{}
	for _, c := range e.criteria {
		if !rec.HasAll(c.Fields...) {
			continue
		}
		found, err := c.Find(ctx, e.store, rec)
		if err != nil {
			return models.MatchResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("find candidates by %s", c.Name))
		}
		for _, cand := range found {
			if cand.Deactivated {
				continue
			}
			if i, seen := index[cand.PersonID]; seen {
				matches[i].Criteria = appendCriterion(matches[i].Criteria, c.Name)
				continue
			}
			index[cand.PersonID] = len(matches)
			matches = append(matches, models.PersonMatch{PersonID: cand.PersonID, Criteria: []models.CriterionName{c.Name}})
		}
	}

	res := models.MatchResult{Outcome: models.ClassifyMatches(len(matches)), Matches: matches}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)), attribute.Int("matches", len(matches)))
	if e.logger != nil && res.Outcome == models.PotentialMatches {
		e.logger.DebugContext(ctx, "potential matches",
			"feed", requestcontext.Feed(ctx),
			"batch_id", requestcontext.BatchID(ctx),
			"row", rec.RowNumber,
			"count", len(matches),
		)
	}
	return res, nil
}

func (e *Evaluator) explicit(ctx context.Context, trn id.Trn) (models.MatchResult, bool, error) {
	holders, err := e.store.FindByTrn(ctx, trn)
	if err != nil {
		return models.MatchResult{}, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "find candidates by trn")
	}
	var active []models.Candidate
	for _, h := range holders {
		if !h.Deactivated {
			active = append(active, h)
		}
	}
	switch {
	case len(active) == 1:
		return models.MatchResult{
			Outcome:  models.DefiniteMatch,
			Matches:  []models.PersonMatch{{PersonID: active[0].PersonID, Criteria: []models.CriterionName{models.CriterionExplicitTrn}}},
			Explicit: true,
		}, true, nil
	case len(active) == 0 && len(holders) > 0:
		return models.MatchResult{}, false, dErrors.New(dErrors.CodeDeactivated, "de-activated record exists for trn "+trn.String())
	default:
		return models.MatchResult{}, false, nil
	}
}

func appendCriterion(list []models.CriterionName, name models.CriterionName) []models.CriterionName {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}
