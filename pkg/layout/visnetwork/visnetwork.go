// Package visnetwork implements the layout engine on top of the vis-network
// force-directed library. The simulation runs in the browser; this side owns
// the authoritative node/edge data and drives the canvas through a JSON
// command stream, receiving click and stabilization events back.
package visnetwork

import (
	"sync"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/layout"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/logger"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/viewmodel"
)

// Command is one instruction for the drawing surface.
type Command struct {
	Op         string           `json:"op"`
	Generation uint64           `json:"generation,omitempty"`
	Nodes      []viewmodel.Node `json:"nodes,omitempty"`
	Edges      []viewmodel.Edge `json:"edges,omitempty"`
	Options    *RenderOptions   `json:"options,omitempty"`
	NodeID     string           `json:"node_id,omitempty"`
	NodeIDs    []string         `json:"node_ids,omitempty"`
	Scale      float64          `json:"scale,omitempty"`
	Factor     float64          `json:"factor,omitempty"`
	Enabled    bool             `json:"enabled,omitempty"`
}

// Command operations understood by the surface script.
const (
	OpRender      = "render"
	OpDestroy     = "destroy"
	OpFit         = "fit"
	OpZoom        = "zoom"
	OpFocus       = "focus"
	OpSelectNodes = "select_nodes"
	OpPhysics     = "physics"
)

// RenderOptions is the vis-network configuration slice the surface applies on
// network creation.
type RenderOptions struct {
	ShowEdgeLabels bool    `json:"show_edge_labels"`
	EdgeLength     float64 `json:"edge_length"`
	Physics        bool    `json:"physics"`
}

// Sink receives encoded commands, typically a per-session websocket writer.
type Sink func(Command) error

// Engine emits vis-network commands. The drawing surface is recreated from
// scratch on every Render; stabilization freezes physics and fits the view
// exactly once per render generation.
type Engine struct {
	mu         sync.Mutex
	sink       Sink
	generation uint64
	stabilized bool
	onClick    func(layout.ClickEvent)
}

// New returns an engine delivering click events to onClick. The engine has no
// attached surface until Attach is called; rendering without one is a no-op.
func New(onClick func(layout.ClickEvent)) *Engine {
	return &Engine{onClick: onClick}
}

// Attach connects the drawing surface. The caller re-renders afterwards;
// commands issued while detached are dropped, not queued.
func (e *Engine) Attach(sink Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

// Detach disconnects the drawing surface, e.g. when the websocket closes.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = nil
}

// Render replaces the displayed graph. The previous network is destroyed on
// the surface and rebuilt from the given arrays. Edges whose endpoints do not
// resolve within the node set are dropped here rather than handed to the
// library, which would fail them one at a time.
func (e *Engine) Render(nodes []viewmodel.Node, edges []viewmodel.Edge, opts layout.Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sink == nil {
		return nil
	}

	e.generation++
	e.stabilized = false

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	kept := make([]viewmodel.Edge, 0, len(edges))
	for _, edge := range edges {
		if !known[edge.From] || !known[edge.To] {
			logger.Debug("Dropping dangling edge",
				"edge", edge.ID, "from", edge.From, "to", edge.To)
			continue
		}
		kept = append(kept, edge)
	}

	err := e.emit(Command{
		Op:         OpRender,
		Generation: e.generation,
		Nodes:      nodes,
		Edges:      kept,
		Options: &RenderOptions{
			ShowEdgeLabels: opts.ShowEdgeLabels,
			EdgeLength:     opts.EdgeLength,
			Physics:        true,
		},
	})
	if err != nil {
		return err
	}

	if opts.CenterID != "" {
		if err := e.emit(Command{Op: OpSelectNodes, NodeIDs: []string{opts.CenterID}}); err != nil {
			return err
		}
		scale := opts.FocusScale
		if scale == 0 {
			scale = 1.2
		}
		return e.emit(Command{Op: OpFocus, NodeID: opts.CenterID, Scale: scale})
	}
	return nil
}

// Destroy tears down the surface network without replacing it.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitBestEffort(Command{Op: OpDestroy})
}

// Refit fits the view to the rendered content.
func (e *Engine) Refit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitBestEffort(Command{Op: OpFit})
}

// Zoom scales the view by factor relative to the current zoom.
func (e *Engine) Zoom(factor float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitBestEffort(Command{Op: OpZoom, Factor: factor})
}

// Focus centers the view on a node at the given scale.
func (e *Engine) Focus(nodeID string, scale float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitBestEffort(Command{Op: OpFocus, NodeID: nodeID, Scale: scale})
}

// SelectNodes highlights the given nodes on the surface.
func (e *Engine) SelectNodes(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ids == nil {
		ids = []string{}
	}
	e.emitBestEffort(Command{Op: OpSelectNodes, NodeIDs: ids})
}

// HandleEvent processes an event reported by the surface. The first
// stabilization event of the current render generation disables physics and
// fits the view; stale generations are ignored so a superseded render cannot
// freeze the one that replaced it.
func (e *Engine) HandleEvent(ev layout.Event) {
	switch ev.Type {
	case layout.EventStabilized:
		e.mu.Lock()
		if ev.Generation != e.generation || e.stabilized {
			e.mu.Unlock()
			return
		}
		e.stabilized = true
		e.emitBestEffort(Command{Op: OpPhysics, Enabled: false})
		e.emitBestEffort(Command{Op: OpFit})
		e.mu.Unlock()

	case layout.EventClick, layout.EventContext:
		if e.onClick == nil {
			return
		}
		e.onClick(layout.ClickEvent{
			NodeIDs:   ev.NodeIDs,
			EdgeIDs:   ev.EdgeIDs,
			Secondary: ev.Type == layout.EventContext,
		})
	}
}

// Generation returns the current render generation, stamped into surface
// events so stale stabilization reports can be told apart.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func (e *Engine) emit(cmd Command) error {
	if e.sink == nil {
		return nil
	}
	return e.sink(cmd)
}

func (e *Engine) emitBestEffort(cmd Command) {
	if err := e.emit(cmd); err != nil {
		logger.Warn("Failed to deliver layout command", "op", cmd.Op, "err", err)
	}
}
