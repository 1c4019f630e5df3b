package wikidata

import (
	"errors"
	"net/http"

	"wikijournalbot/pkg/request"
)

// Failure classes of a SPARQL lookup. Callers match them with errors.Is;
// the underlying cause stays wrapped alongside.
var (
	ErrNetwork      = errors.New("query service unreachable")
	ErrRejected     = errors.New("query rejected by service")
	ErrParse        = errors.New("unreadable query results")
	ErrInvalidQuery = errors.New("cannot build query")
)

// classify maps a transport error to ErrRejected for a 400, which WDQS
// answers for malformed SPARQL, and to ErrNetwork otherwise.
func classify(err error) error {
	var se *request.StatusError
	if errors.As(err, &se) && se.Code == http.StatusBadRequest {
		return ErrRejected
	}
	return ErrNetwork
}
