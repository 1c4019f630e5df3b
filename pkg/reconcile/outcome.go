package reconcile

// Kind tags the result of reconciling one page.
type Kind int

const (
	// Unchanged means there is nothing to submit. Not an error.
	Unchanged Kind = iota
	// Applied means Content holds new page text that should be submitted.
	Applied
	// Failed means a stage failed; Err says why.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Pipeline stages, used in logs and edit history.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageQuery   = "query"
	StageReplace = "replace"
	StageGate    = "gate"
	StageSubmit  = "submit"
)

// Reasons for an Unchanged outcome.
const (
	ReasonNoRows   = "no result rows"
	ReasonNoRegion = "marker region not found"
	ReasonNoChange = "content unchanged"
)

// Outcome is the tagged result of one page.
type Outcome struct {
	Kind    Kind
	Content string // New page text when Applied
	Rows    int
	Stage   string // Last stage reached
	Reason  string // Why nothing was applied, when Unchanged
	Err     error  // Set when Failed
}

func unchanged(stage, reason string, rows int) Outcome {
	return Outcome{Kind: Unchanged, Stage: stage, Reason: reason, Rows: rows}
}

func failed(stage string, err error) Outcome {
	return Outcome{Kind: Failed, Stage: stage, Err: err}
}
