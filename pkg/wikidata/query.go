package wikidata

import (
	"fmt"
	"sort"
	"strconv"

	"wikijournalbot/pkg/model"
)

// Param names one positional placeholder of a query template.
type Param int

const (
	ParamSource Param = iota
	ParamVolume
	ParamIssue
)

func (p Param) String() string {
	switch p {
	case ParamSource:
		return "source"
	case ParamVolume:
		return "volume"
	case ParamIssue:
		return "issue"
	}
	return "unknown"
}

// QueryTemplate is a SPARQL text with %s placeholders filled in Params order.
type QueryTemplate struct {
	Name   string
	Text   string
	Params []Param
}

// NeedsSource reports whether the template takes a journal QID.
func (t QueryTemplate) NeedsSource() bool {
	for _, p := range t.Params {
		if p == ParamSource {
			return true
		}
	}
	return false
}

// PublishedArticles lists the scholarly articles of one journal issue,
// newest first, then by page number descending.
var PublishedArticles = QueryTemplate{
	Name:   "published_articles",
	Params: []Param{ParamSource, ParamVolume, ParamIssue},
	Text: `SELECT DISTINCT ?item ?itemLabel ?image ?pages ?publication WHERE {
  SERVICE wikibase:label { bd:serviceParam wikibase:language "[AUTO_LANGUAGE]". }
  {
    SELECT DISTINCT ?item ?image ?pages ?publication WHERE {
      # Instances of 'scholarly_article'
      ?item p:P31 ?statement0.
      ?statement0 (ps:P31/(wdt:P279*)) wd:Q13442814.

      # From a given journal
      ?item p:P1433 ?statement1.
      ?statement1 (ps:P1433/(wdt:P279*)) wd:%s.

      # Filter by volume and issue
      ?item p:P478 ?statement2.
      ?statement2 (ps:P478) "%s".
      ?item p:P433 ?statement3.
      ?statement3 (ps:P433) "%s".

      OPTIONAL{?item wdt:P18 ?image .}
      OPTIONAL{?item wdt:P304 ?pages .}
      OPTIONAL{?item wdt:P577 ?publication .}
    }
    LIMIT 100
  }
}
ORDER BY DESC(?publication) DESC(xsd:integer(?pages))`,
}

// JournalOfMedicineArticles is pinned to WikiJournal of Medicine (Q24657325).
var JournalOfMedicineArticles = QueryTemplate{
	Name:   "journal_of_medicine",
	Params: []Param{ParamVolume, ParamIssue},
	Text: `SELECT DISTINCT ?item ?itemLabel ?image WHERE {
  SERVICE wikibase:label { bd:serviceParam wikibase:language "[AUTO_LANGUAGE]". }
  {
    SELECT DISTINCT ?item ?image WHERE {
      ?item p:P31 ?statement0.
      ?statement0 (ps:P31/(wdt:P279*)) wd:Q13442814.

      ?item p:P1433 ?statement1.
      ?statement1 (ps:P1433/(wdt:P279*)) wd:Q24657325.

      ?item p:P478 ?statement2.
      ?statement2 (ps:P478) "%s".
      ?item p:P433 ?statement3.
      ?statement3 (ps:P433) "%s".

      OPTIONAL{?item wdt:P18 ?image .}
    }
    LIMIT 100
  }
}`,
}

var templates = map[string]QueryTemplate{
	PublishedArticles.Name:         PublishedArticles,
	JournalOfMedicineArticles.Name: JournalOfMedicineArticles,
}

// LookupTemplate returns the named built-in query.
func LookupTemplate(name string) (QueryTemplate, error) {
	t, ok := templates[name]
	if !ok {
		return QueryTemplate{}, fmt.Errorf("%w: unknown query template %q (known: %v)", ErrInvalidQuery, name, TemplateNames())
	}
	return t, nil
}

// TemplateNames lists the built-in query names in sorted order.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for n := range templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BuildQuery substitutes the identifiers into the template positionally.
// The values come from the extractor (a QID and two integers), so no escaping is applied.
func BuildQuery(t QueryTemplate, ids model.Identifiers) (string, error) {
	args := make([]any, 0, len(t.Params))
	for _, p := range t.Params {
		switch p {
		case ParamSource:
			if !ids.HasSource() {
				return "", fmt.Errorf("%w: %s requires a journal id", ErrInvalidQuery, t.Name)
			}
			args = append(args, ids.SourceID)
		case ParamVolume:
			if ids.Volume <= 0 {
				return "", fmt.Errorf("%w: volume must be positive, got %d", ErrInvalidQuery, ids.Volume)
			}
			args = append(args, strconv.Itoa(ids.Volume))
		case ParamIssue:
			issue := ids.Issue
			if issue <= 0 {
				issue = 1
			}
			args = append(args, strconv.Itoa(issue))
		default:
			return "", fmt.Errorf("%w: unsupported parameter %v", ErrInvalidQuery, p)
		}
	}
	return fmt.Sprintf(t.Text, args...), nil
}
