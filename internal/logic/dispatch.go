package logic

// Action is what a data-ready edge handler should do.
type Action int

const (
	// ActionIgnore leaves the converter alone. Edges seen while DOUT is high
	// are the data bits of an exchange or noise.
	ActionIgnore Action = iota
	// ActionRead clocks out the waiting conversion.
	ActionRead
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "READ"
	case ActionIgnore:
		return "IGNORE"
	}
	return "UNKNOWN"
}

// OnEdge decides what to do on a data-ready edge given the sampled ready
// flag. It is the whole of the handler's policy.
func OnEdge(ready bool) Action {
	if ready {
		return ActionRead
	}
	return ActionIgnore
}

// EdgeCounts tallies edge handler outcomes.
type EdgeCounts struct {
	Edges   int
	Reads   int
	Ignored int
	Errors  int
}

// Record adds one handler outcome.
func (c *EdgeCounts) Record(a Action, err error) {
	c.Edges++
	switch {
	case err != nil:
		c.Errors++
	case a == ActionRead:
		c.Reads++
	default:
		c.Ignored++
	}
}
