package iterator

// Status defines statuses for bounded iterator.
type Status int

const (
	// Unchecked means the engine cursor moved since the last validity check.
	Unchecked Status = iota
	// Valid specifies that iterator has entry retrieved in its Key/Value.
	Valid
	// Exhausted specifies that the engine cursor ran off the keyspace, or
	// that the iterator has been released.
	Exhausted
	// BoundExceeded specifies that the current key lies past the bound.
	BoundExceeded
)

// Reason codes reported for invalid iterators.
const (
	ReasonExhausted     = -1
	ReasonBoundExceeded = -2
)

// Reason returns the reason code of an invalid status, or 0 for Valid and
// Unchecked.
func (s Status) Reason() int {
	switch s {
	case Exhausted:
		return ReasonExhausted
	case BoundExceeded:
		return ReasonBoundExceeded
	}
	return 0
}

func (s Status) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Valid:
		return "valid"
	case Exhausted:
		return "exhausted"
	case BoundExceeded:
		return "bound exceeded"
	}
	return "unknown"
}
