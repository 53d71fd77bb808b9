// Package layout abstracts the force-directed graph drawing surface. The
// simulation itself is an external library; callers only see a small engine
// interface, so the implementation is swappable without touching the
// controller or the merge workflow.
package layout

import "github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/viewmodel"

// Options configure a single render pass.
type Options struct {
	// ShowEdgeLabels toggles relationship labels on the canvas.
	ShowEdgeLabels bool
	// EdgeLength is the spring rest length between connected nodes.
	EdgeLength float64
	// CenterID, when set, names the neighborhood-center node. The engine
	// selects and focuses it once the render is issued.
	CenterID string
	// FocusScale is the zoom level applied when focusing the center node.
	FocusScale float64
}

// Event is a raw notification from the drawing surface.
type Event struct {
	Type       string   `json:"type"`
	Generation uint64   `json:"generation,omitempty"`
	NodeIDs    []string `json:"node_ids,omitempty"`
	EdgeIDs    []string `json:"edge_ids,omitempty"`
}

// Surface event types.
const (
	EventClick      = "click"
	EventContext    = "context"
	EventStabilized = "stabilized"
)

// ClickEvent is a pointer activation delivered to the interaction handler.
// Secondary marks a context-menu activation.
type ClickEvent struct {
	NodeIDs   []string
	EdgeIDs   []string
	Secondary bool
}

// Engine drives the drawing surface. Every Render fully replaces the
// displayed graph; there is no incremental diffing of simulation state.
type Engine interface {
	Render(nodes []viewmodel.Node, edges []viewmodel.Edge, opts Options) error
	Destroy()
	Refit()
	Zoom(factor float64)
	Focus(nodeID string, scale float64)
	SelectNodes(ids []string)

	// HandleEvent feeds a surface event back into the engine. Click and
	// context events are forwarded to the registered click handler;
	// stabilization events drive the freeze-and-fit protocol.
	HandleEvent(ev Event)
}
