package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque record identifier. The backend has emitted both string and
// numeric ids across API versions, so ID accepts either on the wire and
// canonicalizes to a string. Two ids are equal iff their string forms are
// equal.
type ID string

func (i *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*i = ID(n.String())
	return nil
}

func (i ID) String() string {
	return string(i)
}

// IDFromInt stringifies a numeric id the same way UnmarshalJSON does.
func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Entity is a node record as the backend returns it. Older API versions named
// the type field "entity_type" and newer ones "type"; both are retained here
// and resolved by the view-model normalizer. The property bag may itself
// carry a nested type, description, and frequency.
type Entity struct {
	ID          ID             `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type,omitempty"`
	EntityType  string         `json:"entity_type,omitempty"`
	Description string         `json:"description,omitempty"`
	Frequency   int            `json:"frequency,omitempty"`
	GraphID     ID             `json:"graph_id,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Relationship is an edge record as the backend returns it. Endpoint and type
// field names vary by API version; all spellings are retained and the
// normalizer applies the documented fallback order.
type Relationship struct {
	ID             ID             `json:"id"`
	Type           string         `json:"type,omitempty"`
	RelationType   string         `json:"relation_type,omitempty"`
	SourceEntityID ID             `json:"source_entity_id,omitempty"`
	StartNodeID    ID             `json:"start_node_id,omitempty"`
	TargetEntityID ID             `json:"target_entity_id,omitempty"`
	EndNodeID      ID             `json:"end_node_id,omitempty"`
	Description    string         `json:"description,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
	Weight         *float64       `json:"weight,omitempty"`
	GraphID        ID             `json:"graph_id,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
}

// NeighborhoodRelationship is the edge shape returned only by the
// entity-neighborhood endpoint. It predates the Relationship shape and uses
// its own endpoint field names.
type NeighborhoodRelationship struct {
	ID         ID             `json:"id"`
	Type       string         `json:"type,omitempty"`
	SourceID   ID             `json:"source_id"`
	TargetID   ID             `json:"target_id"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Subgraph is the bounded entities+relationships result set for one
// navigation scope. It is transient: every navigation change replaces it
// wholesale.
type Subgraph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// Neighborhood is the entity-neighborhood endpoint's result: the center
// entity separated from its neighbors, with edges in the legacy shape.
type Neighborhood struct {
	CenterEntity       Entity                     `json:"center_entity"`
	Entities           []Entity                   `json:"entities"`
	Relationships      []NeighborhoodRelationship `json:"relationships"`
	TotalEntities      int                        `json:"total_entities"`
	TotalRelationships int                        `json:"total_relationships"`
}

// Graph is a summary record for the graph selector.
type Graph struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Category is a grouping that descends from a graph.
type Category struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	GraphID ID     `json:"graph_id,omitempty"`
}

// Document is an ingested source document within a graph, optionally filed
// under a category.
type Document struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	GraphID    ID     `json:"graph_id,omitempty"`
	CategoryID ID     `json:"category_id,omitempty"`
}

// MergeResult is the backend's answer to an entity merge request. Success
// false carries a user-facing reason in Message.
type MergeResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	MergedEntity *Entity `json:"merged_entity,omitempty"`
}
