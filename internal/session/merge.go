package session

// MergeAction classifies what a merge-mode node click did to the selection.
type MergeAction int

const (
	// MergeAdvanced: the node was added, selection grew to one.
	MergeAdvanced MergeAction = iota
	// MergeReady: the node was added and the pair is complete; the
	// confirmation dialog opens.
	MergeReady
	// MergeRetreated: an already-selected node was clicked again and removed.
	MergeRetreated
	// MergeRejected: a third distinct node was clicked while a full pair was
	// selected. The existing pair is unchanged; the user gets a warning.
	MergeRejected
)

// toggleMergeCandidate applies one node click to the merge selection and
// returns the new selection. Pure function; the selection never exceeds two.
func toggleMergeCandidate(selection []string, nodeID string) ([]string, MergeAction) {
	for i, id := range selection {
		if id == nodeID {
			next := make([]string, 0, len(selection)-1)
			next = append(next, selection[:i]...)
			next = append(next, selection[i+1:]...)
			return next, MergeRetreated
		}
	}

	if len(selection) >= 2 {
		return selection, MergeRejected
	}

	next := append(append([]string(nil), selection...), nodeID)
	if len(next) == 2 {
		return next, MergeReady
	}
	return next, MergeAdvanced
}
