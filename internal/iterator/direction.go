package iterator

// Direction defines direction of iterator.
type Direction int

const (
	// Forward states that iterator moves toward greater keys.
	Forward Direction = iota
	// Reverse states that iterator moves toward smaller keys.
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}
