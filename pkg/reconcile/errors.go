package reconcile

import (
	"errors"

	"wikijournalbot/pkg/wikitext"
)

var (
	// ErrExtraction indicates the page does not carry enough identifiers to query.
	ErrExtraction = wikitext.ErrExtraction
	// ErrQueryService indicates a transport or parse failure of the SPARQL endpoint.
	ErrQueryService = errors.New("query service failed")
	// ErrSubmission indicates the edit was rejected or could not be sent.
	ErrSubmission = errors.New("submission failed")
)
