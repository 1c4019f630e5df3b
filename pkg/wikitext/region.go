package wikitext

import (
	"regexp"
	"strings"

	"wikijournalbot/pkg/model"
)

// RowSeparator joins rendered rows inside the region.
const RowSeparator = "\n\n"

// regionPattern matches the first {{Start...}} ... {{End}} region. The interior is
// matched lazily so the first end marker closes it. Marker names match case-insensitively.
func regionPattern(m model.Markers) *regexp.Regexp {
	return regexp.MustCompile(`(?is)(\{\{\s*` + regexp.QuoteMeta(m.Start) + `(?:\s*\|[^{}]*)?\s*\}\})(.*?)(\{\{\s*` + regexp.QuoteMeta(m.End) + `\s*\}\})`)
}

// ReplaceRegion replaces the interior of the first marker region with the rows.
// The opening marker is re-emitted with its arguments verbatim. found is false
// when no region exists, in which case content is returned unchanged.
func ReplaceRegion(content string, m model.Markers, rows []string) (out string, found bool) {
	loc := regionPattern(m).FindStringSubmatchIndex(content)
	if loc == nil {
		return content, false
	}

	open := content[loc[2]:loc[3]]
	closing := content[loc[6]:loc[7]]

	var b strings.Builder
	b.Grow(len(content))
	b.WriteString(content[:loc[0]])
	b.WriteString(open)
	b.WriteString("\n")
	b.WriteString(strings.Join(rows, RowSeparator))
	b.WriteString("\n")
	b.WriteString(closing)
	b.WriteString(content[loc[1]:])
	return b.String(), true
}
