package search

import (
	"context"

	"usint/api/internal/store"
)

// revisionLister is the store-side fallback query.
type revisionLister interface {
	ListRevisionsFiltered(context.Context, store.RevisionFilter) ([]store.Revision, error)
}

// PgRevisions is the fallback searcher: a filtered ILIKE scan over the
// revisions table. No ranking, but always available when the app is up.
type PgRevisions struct {
	lister revisionLister
}

func NewPgRevisions(lister revisionLister) *PgRevisions {
	return &PgRevisions{lister: lister}
}

func (p *PgRevisions) Search(ctx context.Context, q Query) ([]Result, int, error) {
	revisions, err := p.lister.ListRevisionsFiltered(ctx, store.RevisionFilter{
		Obsid: q.Obsid,
		Kind:  q.Kind,
		Text:  q.Text,
		Limit: q.Limit,
	})
	if err != nil {
		return nil, 0, err
	}

	results := make([]Result, 0, len(revisions))
	for _, rev := range revisions {
		result := Result{
			ID:             rev.ID,
			Obsid:          rev.Obsid,
			RevisionNumber: rev.RevisionNumber,
			Kind:           rev.Kind,
			Submitter:      rev.Submitter,
			RevTime:        rev.RevTime,
		}
		if rev.Notes != nil {
			result.Notes = *rev.Notes
		}
		results = append(results, result)
	}
	return results, len(results), nil
}
