package config

import (
	"sort"
)

// SourceMap maps human-readable journal names to Wikidata QIDs.
// It is read-only once loaded; lookups are case-sensitive.
type SourceMap map[string]string

// DefaultSources returns the journals supported out of the box.
func DefaultSources() SourceMap {
	return SourceMap{
		"WikiJournal of Medicine":   "Q24657325",
		"WikiJournal of Science":    "Q22674854",
		"WikiJournal of Humanities": "Q56816727",
		"WikiJournal of PPB":        "Q105451083",
		"WikiJournal Preprints":     "Q100164397",
	}
}

// Lookup returns the QID for an exact name.
func (m SourceMap) Lookup(name string) (string, bool) {
	id, ok := m[name]
	return id, ok
}

// Names returns the known names, longest first, so that substring matching
// prefers "WikiJournal of Medicine Reviews" over "WikiJournal of Medicine".
// Equal lengths are ordered alphabetically to keep runs deterministic.
func (m SourceMap) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}
