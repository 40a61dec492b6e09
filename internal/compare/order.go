package compare

import "github.com/tomasbasham/pageshot/internal/model"

// OrderBeforeAfter labels two screenshots as before/after by CreatedAt
// (earlier is "before"), breaking a tie by ID ascending so the ordering is
// deterministic even for two rows written in the same millisecond.
func OrderBeforeAfter(a, b model.Screenshot) (before, after model.Screenshot) {
	if a.CreatedAt.Equal(b.CreatedAt) {
		if a.ID <= b.ID {
			return a, b
		}
		return b, a
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return a, b
	}
	return b, a
}
