package cast

// Decision classifications produced by evaluation. Anything that is not a
// clean "recommend" keeps the cast off the subscriber stream.
const (
	DecisionRecommend     = "recommend"
	DecisionInappropriate = "inappropriate"
	DecisionStop          = "stop"
)

// Decision is the structured verdict from evaluating one cast against one
// subscription prompt. Item carries the original feed envelope so subscribers
// receive the full upstream payload alongside the verdict. A Decision is
// consumed exactly once by the subscription queue reader.
type Decision struct {
	Decision  string    `json:"decision"`
	Rationale string    `json:"rationale,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Message   string    `json:"message,omitempty"`
	Item      *Envelope `json:"item,omitempty"`
}

// StopDecision returns the conservative verdict used when evaluation fails:
// never forward content that could not be vetted.
func StopDecision() Decision {
	return Decision{Decision: DecisionStop}
}

// Recommended reports whether the decision forwards the cast.
func (d Decision) Recommended() bool {
	return d.Decision == DecisionRecommend
}
