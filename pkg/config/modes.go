package config

// Deployment modes.
const (
	ModeJournal  = "journal"
	ModeMedicine = "medicine"
)

// Title matching policies for resolving a source name from a page title.
const (
	PolicySubstring    = "substring"
	PolicyFirstSegment = "first_segment"
)

// Preset is the effective per-mode behaviour after overrides are applied.
type Preset struct {
	Query         string
	Namespace     string // tinamespace for discovery, empty for all
	TitlePolicy   string
	LabelKey      string
	RequireSource bool
	GuardOperator bool
	CheckPages    bool
}

var modePresets = map[string]Preset{
	// Multi-journal lists: the journal must be known to build the query.
	ModeJournal: {
		Query:         "published_articles",
		Namespace:     "2",
		TitlePolicy:   PolicySubstring,
		LabelKey:      "Q",
		RequireSource: true,
		GuardOperator: true,
		CheckPages:    true,
	},
	// Single-journal lists: the query pins the journal itself.
	ModeMedicine: {
		Query:         "journal_of_medicine",
		TitlePolicy:   PolicyFirstSegment,
		LabelKey:      "item",
		RequireSource: false,
		GuardOperator: false,
		CheckPages:    true,
	},
}

// Preset returns the mode preset with any explicit overrides from the file applied.
func (c *Config) Preset() Preset {
	p := modePresets[c.Bot.Mode]

	switch c.Wiki.Namespace {
	case "":
	case "*":
		p.Namespace = ""
	default:
		p.Namespace = c.Wiki.Namespace
	}
	if c.Wikidata.Query != "" {
		p.Query = c.Wikidata.Query
	}
	if c.Extraction.TitlePolicy != "" {
		p.TitlePolicy = c.Extraction.TitlePolicy
	}
	if c.Templates.LabelKey != "" {
		p.LabelKey = c.Templates.LabelKey
	}
	if c.Extraction.RequireSource != nil {
		p.RequireSource = *c.Extraction.RequireSource
	}
	if c.Bot.GuardOperator != nil {
		p.GuardOperator = *c.Bot.GuardOperator
	}
	if c.Bot.CheckPages != nil {
		p.CheckPages = *c.Bot.CheckPages
	}
	return p
}
