// Package reconcile computes the new text of one list page from Wikidata results.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"wikijournalbot/pkg/model"
	"wikijournalbot/pkg/wikidata"
	"wikijournalbot/pkg/wikitext"
)

// Querier runs a SPARQL query.
type Querier interface {
	QueryArticles(ctx context.Context, query, cacheKey string) ([]model.ResultRow, error)
}

// Pipeline runs extract, query, render, replace and gate for a page.
// It never submits; the caller acts on the returned Outcome.
type Pipeline struct {
	Extractor  wikitext.Extractor
	Query      wikidata.QueryTemplate
	Renderer   wikitext.Renderer
	Markers    model.Markers
	DefaultRow string
	Querier    Querier
	CacheQuery bool
	Logger     *slog.Logger
}

// Reconcile processes one page document.
func (p *Pipeline) Reconcile(ctx context.Context, page model.PageDocument) Outcome {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("title", page.Title)

	ids, err := p.Extractor.Extract(page.Title, page.Content)
	if err != nil {
		return failed(StageExtract, err)
	}
	logger.Debug("Identifiers extracted", "source", ids.SourceID, "volume", ids.Volume, "issue", ids.Issue)

	query, err := wikidata.BuildQuery(p.Query, ids)
	if err != nil {
		return failed(StageExtract, fmt.Errorf("%w: %w", ErrExtraction, err))
	}

	cacheKey := ""
	if p.CacheQuery {
		cacheKey = wikidata.CacheKey(query)
	}
	rows, err := p.Querier.QueryArticles(ctx, query, cacheKey)
	if err != nil {
		return failed(StageQuery, fmt.Errorf("%w: %w", ErrQueryService, err))
	}
	if len(rows) == 0 {
		return unchanged(StageQuery, ReasonNoRows, 0)
	}

	rowTemplate := p.DefaultRow
	if t, ok := wikitext.RowTemplate(page.Content); ok {
		rowTemplate = t
	}
	rendered := p.Renderer.Render(rows, rowTemplate)

	newContent, found := wikitext.ReplaceRegion(page.Content, p.Markers, rendered)
	if !found {
		return unchanged(StageReplace, ReasonNoRegion, len(rows))
	}

	if !ShouldApply(page.Content, newContent, len(rows)) {
		return unchanged(StageGate, ReasonNoChange, len(rows))
	}

	return Outcome{Kind: Applied, Content: newContent, Rows: len(rows), Stage: StageGate}
}
