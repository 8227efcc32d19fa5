package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

// processTaxonomies imports categories, then tags, then generic terms.
func (r *run) processTaxonomies(ctx context.Context) error {
	passes := []struct {
		terms    []wxr.Term
		taxonomy string
	}{
		{r.doc.Categories, "category"},
		{r.doc.Tags, "post_tag"},
		{r.doc.Terms, ""},
	}

	for _, pass := range passes {
		terms := append([]wxr.Term(nil), pass.terms...)
		sort.SliceStable(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })

		for _, term := range terms {
			taxonomy := pass.taxonomy
			if taxonomy == "" {
				taxonomy = term.Taxonomy
			}
			if err := r.processTerm(ctx, term, taxonomy); err != nil {
				return err
			}
		}
	}

	slog.Info("Taxonomies processed", "terms", len(r.state.Terms))
	return nil
}

func (r *run) processTerm(ctx context.Context, term wxr.Term, taxonomy string) error {
	if taxonomy == "" || term.Slug == "" {
		slog.Warn("Failed to import term",
			"term_id", term.ID,
			"name", term.Name,
			"error", fmt.Errorf("%w: term without slug or taxonomy", ErrValidation))
		return nil
	}

	existing, err := r.im.store.TermExists(ctx, term.Slug, taxonomy)
	if err != nil {
		return r.recoverable(ctx, "Failed to look up term", err, "slug", term.Slug)
	}
	if existing > 0 {
		if term.ID > 0 {
			return r.state.mapTerm(ctx, term.ID, existing)
		}
		return nil
	}

	var parent int64
	if term.Parent != "" && taxonomy != "post_tag" {
		parent, err = r.im.store.TermExists(ctx, term.Parent, taxonomy)
		if err != nil {
			return r.recoverable(ctx, "Failed to look up parent term", err, "slug", term.Parent)
		}
	}

	id, err := r.im.store.InsertTerm(ctx, database.Term{
		Taxonomy:    taxonomy,
		Slug:        term.Slug,
		Name:        term.Name,
		Description: term.Description,
		Parent:      parent,
	})
	if err != nil {
		return r.recoverable(ctx, "Failed to import term", err, "slug", term.Slug, "taxonomy", taxonomy)
	}

	if r.im.opts.Overwrite && term.ID > 0 {
		id = r.assignTermID(ctx, id, term.ID)
	}

	if term.ID > 0 {
		return r.state.mapTerm(ctx, term.ID, id)
	}
	return nil
}

// assignTermID moves a new term to its source id and returns the id the term ends up with.
func (r *run) assignTermID(ctx context.Context, id, sourceID int64) int64 {
	if err := r.im.store.AssignTermID(ctx, id, sourceID); err != nil {
		if errors.Is(err, database.ErrIDInUse) {
			slog.Warn("Term id already in use, keeping generated id", "source_id", sourceID, "term_id", id)
		} else {
			slog.Warn("Failed to assign term id", "source_id", sourceID, "term_id", id, "error", err)
		}
		return id
	}
	return sourceID
}

// recoverable logs a per-entity failure. Cancellation is returned so the run stops.
func (r *run) recoverable(ctx context.Context, msg string, err error, args ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	slog.Warn(msg, append(args, "error", err)...)
	return nil
}
