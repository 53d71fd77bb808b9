package session

// Mode is the session's interaction mode, a tagged variant so each mode
// carries only the data that belongs to it. A session is in exactly one mode
// at a time; node clicks and form submissions are interpreted against it.
type Mode interface {
	mode()
}

// Viewing is the default mode: clicks open detail panels or, with drill-mode
// on, descend into a node's neighborhood.
type Viewing struct{}

// Merging is active merge-mode. Selection holds the node ids picked so far,
// in pick order; the first is the source (absorbed) and the second the
// target (retained). Confirming is true while the confirmation dialog is
// open with a full pair.
type Merging struct {
	Selection  []string
	Confirming bool
}

// EditingEntity holds the in-progress entity edit form.
type EditingEntity struct {
	Draft EntityDraft
}

// EditingEdge holds the in-progress relationship edit form.
type EditingEdge struct {
	Draft EdgeDraft
}

func (Viewing) mode()       {}
func (Merging) mode()       {}
func (EditingEntity) mode() {}
func (EditingEdge) mode()   {}
