package ledger

// DiffResult classifies each task as added, removed, or unchanged between an
// author's previously recorded task list and a newly parsed one. Semantics
// are pure set difference by exact string equality: order within the result
// is deterministic (Added and Unchanged follow the new list, Removed follows
// the previous list) but only presence is meaningful.
type DiffResult struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

// Empty reports whether the diff carries no additions and no removals.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Diff compares a previous task list to a new one.
//
//	Added     = next − prev
//	Removed   = prev − next
//	Unchanged = next ∩ prev
func Diff(prev, next []string) DiffResult {
	prevSet := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		prevSet[t] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, t := range next {
		nextSet[t] = struct{}{}
	}

	var result DiffResult
	for _, t := range next {
		if _, ok := prevSet[t]; ok {
			result.Unchanged = append(result.Unchanged, t)
		} else {
			result.Added = append(result.Added, t)
		}
	}
	for _, t := range prev {
		if _, ok := nextSet[t]; !ok {
			result.Removed = append(result.Removed, t)
		}
	}

	return result
}
