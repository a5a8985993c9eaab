package rpcselect

// best returns the candidate with the lexicographically smallest
// (Priority, ConsecutiveErrors) pair. callers must pass a non-empty
// slice; ties are broken by input order, so a caller that wants a
// stable preference among equal pairs should order candidates that way
// before calling best (Selector orders its Store query by (priority,
// consecutive_errors), which already produces this order).
func best(candidates []Endpoint) Endpoint {
	winner := candidates[0]
	for _, c := range candidates[1:] {
		if lessPolicy(c, winner) {
			winner = c
		}
	}
	return winner
}

// lessPolicy reports whether a ranks ahead of b under the selection
// policy: smaller priority first, then fewer consecutive errors.
func lessPolicy(a, b Endpoint) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.ConsecutiveErrors < b.ConsecutiveErrors
}
