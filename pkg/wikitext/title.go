package wikitext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceLookup resolves human-readable journal names to entity ids.
type SourceLookup interface {
	Lookup(name string) (string, bool)
	Names() []string
}

// TitlePolicy resolves a journal from a page title.
type TitlePolicy interface {
	Name() string
	Resolve(title string, sources SourceLookup) (string, bool)
}

// SubstringPolicy matches any known name contained anywhere in the title.
// Names are tried in the order returned by sources.Names().
type SubstringPolicy struct{}

func (SubstringPolicy) Name() string { return "substring" }

func (SubstringPolicy) Resolve(title string, sources SourceLookup) (string, bool) {
	title = norm.NFC.String(title)
	for _, name := range sources.Names() {
		if strings.Contains(title, norm.NFC.String(name)) {
			return sources.Lookup(name)
		}
	}
	return "", false
}

// FirstSegmentPolicy matches only the first "/"-delimited segment of the title,
// with any namespace prefix removed, against the known names exactly.
type FirstSegmentPolicy struct{}

func (FirstSegmentPolicy) Name() string { return "first_segment" }

func (FirstSegmentPolicy) Resolve(title string, sources SourceLookup) (string, bool) {
	seg, _, _ := strings.Cut(title, "/")
	if _, rest, ok := strings.Cut(seg, ":"); ok {
		seg = rest
	}
	seg = norm.NFC.String(strings.TrimSpace(seg))
	if seg == "" {
		return "", false
	}
	for _, name := range sources.Names() {
		if norm.NFC.String(name) == seg {
			return sources.Lookup(name)
		}
	}
	return "", false
}

// PolicyByName returns the policy registered under name.
func PolicyByName(name string) (TitlePolicy, error) {
	switch name {
	case SubstringPolicy{}.Name():
		return SubstringPolicy{}, nil
	case FirstSegmentPolicy{}.Name():
		return FirstSegmentPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown title policy %q", name)
}

var titleVolumeIssueRe = regexp.MustCompile(`(?i)\bVolume\s*(\d+)(?:\s*,?\s*Issue\s*(\d+))?`)

// titleVolumeIssue parses "Volume N Issue M" from a title, also in the forms
// "Volume N, Issue M" and "volume N issue M". issue is 0 when absent.
func titleVolumeIssue(title string) (volume, issue int, ok bool) {
	m := titleVolumeIssueRe.FindStringSubmatch(title)
	if m == nil {
		return 0, 0, false
	}
	volume, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	if m[2] != "" {
		issue, _ = strconv.Atoi(m[2])
	}
	return volume, issue, true
}
