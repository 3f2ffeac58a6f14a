package pipeline

// State is a stage of request processing. States only move forward; Failed and
// Responded are terminal.
type State int

const (
	Received State = iota
	TierResolved
	TokenChecked
	RateLimitChecked
	Normalized
	Aggregated
	Responded
	Failed
)

var stateNames = [...]string{
	Received:         "received",
	TierResolved:     "tier_resolved",
	TokenChecked:     "token_checked",
	RateLimitChecked: "rate_limit_checked",
	Normalized:       "normalized",
	Aggregated:       "aggregated",
	Responded:        "responded",
	Failed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == Responded || s == Failed
}

// Transition is reported to observers on every state change. Err is set only
// when To is Failed.
type Transition struct {
	From State
	To   State
	Err  error
}
