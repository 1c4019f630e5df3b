package wikitext

import (
	"net/url"
	"strings"

	"wikijournalbot/pkg/model"
)

const filePathMarker = "Special:FilePath/"

// Renderer turns result rows into row-template invocations.
type Renderer struct {
	LabelKey string // "Q" or "item"
}

// Render returns one snippet per row, in row order.
func (r Renderer) Render(rows []model.ResultRow, rowTemplate string) []string {
	key := r.LabelKey
	if key == "" {
		key = "Q"
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		b.WriteString("{{")
		b.WriteString(rowTemplate)
		b.WriteString("|")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(row.Label)
		b.WriteString("|image=")
		b.WriteString(ImageFileName(row.ImageURL))
		b.WriteString("}}")
		out = append(out, b.String())
	}
	return out
}

// ImageFileName extracts the decoded media file name from a Special:FilePath URL.
// Values without the marker yield an empty name.
func ImageFileName(imageURL string) string {
	_, name, ok := strings.Cut(imageURL, filePathMarker)
	if !ok || name == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(name)
	if err != nil {
		return name
	}
	return decoded
}
