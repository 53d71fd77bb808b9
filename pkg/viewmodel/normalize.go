// Package viewmodel converts backend entity and relationship records into the
// uniform node/edge model the layout engine renders. All tolerance for legacy
// field spellings lives here; nothing downstream inspects raw records.
package viewmodel

import (
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/palette"
)

const (
	// BaseRadius is the default node size handed to the layout engine.
	BaseRadius = 25
	// CenterRadiusBonus enlarges the active neighborhood-center node.
	CenterRadiusBonus = 10

	defaultEdgeWidth = 2
)

// UnknownType labels entities that carry no type in any known field.
const UnknownType = "Unknown"

// Node is the view model for one entity, ready for rendering.
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Color      string         `json:"color"`
	FontColor  string         `json:"font_color"`
	Radius     float64        `json:"radius"`
}

// Edge is the view model for one relationship. From and To are node ids; the
// normalizer does not verify they resolve within the node set, that is a
// contract on the backend's subgraph data.
type Edge struct {
	ID          string  `json:"id"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Width       float64 `json:"width"`
}

// Normalizer builds Node and Edge arrays from backend records. It holds no
// per-call state: Normalize is a pure function of its inputs and the palette.
type Normalizer struct {
	Colors *palette.Palette
}

// NewNormalizer returns a Normalizer decorating nodes with colors from p.
func NewNormalizer(p *palette.Palette) *Normalizer {
	return &Normalizer{Colors: p}
}

// Normalize converts raw records into the view model. centerID, when
// non-empty, marks the neighborhood-center entity, which gets an enlarged
// radius.
func (n *Normalizer) Normalize(
	entities []common.Entity,
	relationships []common.Relationship,
	centerID common.ID,
) ([]Node, []Edge) {
	nodes := make([]Node, 0, len(entities))
	for _, e := range entities {
		nodes = append(nodes, n.node(e, e.ID == centerID && centerID != ""))
	}

	edges := make([]Edge, 0, len(relationships))
	for _, r := range relationships {
		edges = append(edges, normalizeEdge(r))
	}

	return nodes, edges
}

// NormalizeNeighborhood adapts the entity-neighborhood result shape: the
// center entity is unioned with the neighbor list (center wins on duplicate
// ids) and the legacy relationship shape is converted before normalization.
func (n *Normalizer) NormalizeNeighborhood(nb common.Neighborhood) ([]Node, []Edge) {
	entities := UnionNeighborhood(nb.CenterEntity, nb.Entities)

	relationships := make([]common.Relationship, 0, len(nb.Relationships))
	for _, r := range nb.Relationships {
		relationships = append(relationships, common.Relationship{
			ID:             r.ID,
			Type:           r.Type,
			SourceEntityID: r.SourceID,
			TargetEntityID: r.TargetID,
			Properties:     r.Properties,
		})
	}

	return n.Normalize(entities, relationships, nb.CenterEntity.ID)
}

// UnionNeighborhood merges the center entity with its neighbors, removing
// duplicates by id. The center entity wins when the same id appears in the
// neighbor list; otherwise first-seen order is preserved.
func UnionNeighborhood(center common.Entity, neighbors []common.Entity) []common.Entity {
	union := make([]common.Entity, 0, len(neighbors)+1)
	union = append(union, center)

	seen := map[common.ID]bool{center.ID: true}
	for _, e := range neighbors {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		union = append(union, e)
	}

	return union
}

func (n *Normalizer) node(e common.Entity, isCenter bool) Node {
	typ := resolveEntityType(e)

	props := make(map[string]any, len(e.Properties)+2)
	for k, v := range e.Properties {
		props[k] = v
	}
	if e.Description != "" {
		props["description"] = e.Description
	}
	if e.Frequency != 0 {
		props["frequency"] = e.Frequency
	}

	radius := float64(BaseRadius)
	if isCenter {
		radius += CenterRadiusBonus
	}

	color := n.Colors.ColorFor(typ)
	return Node{
		ID:         e.ID.String(),
		Label:      e.Name,
		Type:       typ,
		Properties: props,
		Color:      color,
		FontColor:  palette.TextColorFor(color),
		Radius:     radius,
	}
}

func resolveEntityType(e common.Entity) string {
	if e.Type != "" {
		return e.Type
	}
	if e.EntityType != "" {
		return e.EntityType
	}
	if t, ok := e.Properties["entity_type"].(string); ok && t != "" {
		return t
	}
	return UnknownType
}

func normalizeEdge(r common.Relationship) Edge {
	label := r.RelationType
	if label == "" {
		label = r.Type
	}

	width := float64(defaultEdgeWidth)
	if r.Weight != nil && *r.Weight > 0 {
		width = *r.Weight
	}

	// Endpoint fallback stops at the empty string: an edge with no endpoint
	// in either field surfaces downstream instead of being invented here.
	from := r.SourceEntityID
	if from == "" {
		from = r.StartNodeID
	}
	to := r.TargetEntityID
	if to == "" {
		to = r.EndNodeID
	}

	return Edge{
		ID:          r.ID.String(),
		From:        from.String(),
		To:          to.String(),
		Label:       label,
		Description: r.Description,
		Width:       width,
	}
}
