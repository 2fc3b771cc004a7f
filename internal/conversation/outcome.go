package conversation

import "fmt"

// OutcomeKind classifies the result of processing one webhook item.
type OutcomeKind string

const (
	// OutcomeReplied means the inbound message was stored and answered.
	OutcomeReplied OutcomeKind = "replied"
	// OutcomeStored means the inbound message was stored without a reply.
	OutcomeStored OutcomeKind = "stored"
	// OutcomeUpdated means a status event was applied to a stored message.
	OutcomeUpdated OutcomeKind = "updated"
	// OutcomeSkipped means the item was deliberately ignored.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeFailed means processing aborted with an error.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the explicit per-item result. Failures carry the error; skips
// carry a human-readable reason so batch callers can report partial results.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

func Replied() Outcome              { return Outcome{Kind: OutcomeReplied} }
func Stored() Outcome               { return Outcome{Kind: OutcomeStored} }
func Updated() Outcome              { return Outcome{Kind: OutcomeUpdated} }
func Skipped(reason string) Outcome { return Outcome{Kind: OutcomeSkipped, Reason: reason} }
func Failed(err error) Outcome      { return Outcome{Kind: OutcomeFailed, Err: err} }

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSkipped:
		return fmt.Sprintf("skipped: %s", o.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("failed: %v", o.Err)
	default:
		return string(o.Kind)
	}
}

// Summary aggregates outcomes across a webhook batch.
type Summary struct {
	Replied int `json:"replied"`
	Stored  int `json:"stored"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Summarize counts outcomes by kind.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeReplied:
			s.Replied++
		case OutcomeStored:
			s.Stored++
		case OutcomeUpdated:
			s.Updated++
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
