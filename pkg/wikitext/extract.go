package wikitext

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"wikijournalbot/pkg/model"
)

// ErrExtraction indicates the identifiers needed for a query could not be determined.
var ErrExtraction = errors.New("extraction failed")

// Extractor pulls journal, volume and issue out of a page.
// Template arguments in the body take precedence over values parsed from the title.
type Extractor struct {
	Sources       SourceLookup
	Policy        TitlePolicy
	RequireSource bool
}

// Extract returns the identifiers for a page or an error wrapping ErrExtraction.
func (e Extractor) Extract(title, content string) (model.Identifiers, error) {
	ids := model.Identifiers{SourceID: e.source(title, content)}

	volume, hasVolume := volumeArg(content)
	issue, hasIssue := issueArg(content)

	if !hasVolume {
		tv, ti, ok := titleVolumeIssue(title)
		if ok {
			volume, hasVolume = tv, true
			if !hasIssue && ti > 0 {
				issue, hasIssue = ti, true
			}
		}
	}

	if !hasVolume || volume <= 0 {
		return ids, fmt.Errorf("%w: no volume in arguments or title %q", ErrExtraction, title)
	}
	if !hasIssue || issue <= 0 {
		issue = 1
	}
	ids.Volume = volume
	ids.Issue = issue

	if e.RequireSource && !ids.HasSource() {
		return ids, fmt.Errorf("%w: could not resolve journal for title %q", ErrExtraction, title)
	}
	return ids, nil
}

// source resolves the journal: an explicit entity id wins, then an exact
// argument lookup, then the title policy.
func (e Extractor) source(title, content string) string {
	arg, hasArg := journalArg(content)
	if hasArg && IsEntityID(arg) {
		return arg
	}
	if e.Sources == nil {
		return ""
	}
	if hasArg {
		if id, ok := e.lookupNormalized(arg); ok {
			return id
		}
	}
	if e.Policy == nil {
		return ""
	}
	id, _ := e.Policy.Resolve(title, e.Sources)
	return id
}

func (e Extractor) lookupNormalized(name string) (string, bool) {
	if id, ok := e.Sources.Lookup(name); ok {
		return id, true
	}
	name = norm.NFC.String(name)
	for _, n := range e.Sources.Names() {
		if norm.NFC.String(n) == name {
			return e.Sources.Lookup(n)
		}
	}
	return "", false
}
