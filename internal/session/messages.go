package session

import (
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/layout/visnetwork"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/viewmodel"
)

// Inbound is a message from the browser. Type selects the handler; the other
// fields carry whatever that handler needs.
type Inbound struct {
	Type string `json:"type"`

	// Navigation.
	GraphID    common.ID `json:"graph_id,omitempty"`
	CategoryID common.ID `json:"category_id,omitempty"`
	DocumentID common.ID `json:"document_id,omitempty"`
	EntityID   common.ID `json:"entity_id,omitempty"`
	Hops       int       `json:"hops,omitempty"`

	// Drawing-surface events.
	Generation uint64   `json:"generation,omitempty"`
	NodeIDs    []string `json:"node_ids,omitempty"`
	EdgeIDs    []string `json:"edge_ids,omitempty"`

	// View controls.
	Factor float64 `json:"factor,omitempty"`

	// Merge confirmation.
	MergedName        string `json:"merged_name,omitempty"`
	MergedDescription string `json:"merged_description,omitempty"`

	// Editor forms.
	ID           common.ID `json:"id,omitempty"`
	Name         string    `json:"name,omitempty"`
	EntityType   string    `json:"entity_type,omitempty"`
	RelationType string    `json:"relation_type,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Inbound message types.
const (
	MsgSelectGraph      = "select_graph"
	MsgSelectCategory   = "select_category"
	MsgClearCategory    = "clear_category"
	MsgSelectDocument   = "select_document"
	MsgClearDocument    = "clear_document"
	MsgViewNeighborhood = "view_neighborhood"
	MsgResetView        = "reset_view"

	MsgClick      = "click"
	MsgContext    = "context"
	MsgStabilized = "stabilized"

	MsgRefit = "refit"
	MsgZoom  = "zoom"

	MsgToggleMerge  = "toggle_merge"
	MsgToggleDrill  = "toggle_drill"
	MsgConfirmMerge = "confirm_merge"
	MsgCancelMerge  = "cancel_merge"

	MsgEditEntity   = "edit_entity"
	MsgSaveEntity   = "save_entity"
	MsgDeleteEntity = "delete_entity"
	MsgEditEdge     = "edit_edge"
	MsgSaveEdge     = "save_edge"
	MsgCancelEdit   = "cancel_edit"
)

// Outbound is a message to the browser. Kind selects the payload field.
type Outbound struct {
	Kind string `json:"kind"`

	Engine      *visnetwork.Command `json:"engine,omitempty"`
	Notify      *Notification       `json:"notify,omitempty"`
	Detail      *Detail             `json:"detail,omitempty"`
	MergePrompt *MergePrompt        `json:"merge_prompt,omitempty"`
	Lists       *Lists              `json:"lists,omitempty"`
	ModeState   *ModeState          `json:"mode_state,omitempty"`
	Editor      *EditorOpen         `json:"editor,omitempty"`
	TypeOptions *TypeOptions        `json:"type_options,omitempty"`
	Invalid     *InvalidField       `json:"invalid,omitempty"`
}

// Outbound kinds.
const (
	KindEngine      = "engine"
	KindNotify      = "notify"
	KindDetail      = "detail"
	KindCloseDetail = "close_detail"
	KindMergePrompt = "merge_prompt"
	KindCloseMerge  = "close_merge"
	KindLists       = "lists"
	KindModeState   = "mode_state"
	KindEditor      = "editor"
	KindCloseEditor = "close_editor"
	KindTypes       = "type_options"
	KindInvalid     = "invalid"
)

// Notification is a transient user-visible message. All user-facing failures
// use this channel; nothing crashes or blanks the view.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notification levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Detail is a read-only panel for one node or one edge.
type Detail struct {
	Node *viewmodel.Node `json:"node,omitempty"`
	Edge *viewmodel.Edge `json:"edge,omitempty"`
}

// MergePrompt opens the merge confirmation dialog. Source is absorbed into
// Target; MergedName defaults to the target's current label and both merged
// fields are editable before commit.
type MergePrompt struct {
	SourceID          string `json:"source_id"`
	SourceLabel       string `json:"source_label"`
	TargetID          string `json:"target_id"`
	TargetLabel       string `json:"target_label"`
	MergedName        string `json:"merged_name"`
	MergedDescription string `json:"merged_description"`
}

// Lists refreshes the navigation selectors. Only non-nil slices are applied
// by the browser.
type Lists struct {
	Graphs     []common.Graph    `json:"graphs,omitempty"`
	Categories []common.Category `json:"categories,omitempty"`
	Documents  []common.Document `json:"documents,omitempty"`
}

// ModeState mirrors the session's interaction flags to the browser.
type ModeState struct {
	Merge        bool   `json:"merge"`
	Drill        bool   `json:"drill"`
	Neighborhood bool   `json:"neighborhood"`
	CenterID     string `json:"center_id,omitempty"`
}

// EditorOpen opens an edit form seeded from the selected node or edge.
type EditorOpen struct {
	Entity *EntityDraft `json:"entity,omitempty"`
	Edge   *EdgeDraft   `json:"edge,omitempty"`
}

// TypeOptions populates an editor's type dropdown.
type TypeOptions struct {
	Kind  string   `json:"kind"`
	Types []string `json:"types"`
}

// TypeOptions kinds.
const (
	TypeKindEntity   = "entity"
	TypeKindRelation = "relation"
)

// InvalidField highlights a failed client-side validation.
type InvalidField struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Internal loop events posted by worker goroutines.

type graphsLoaded struct {
	graphs []common.Graph
	err    error
}

type typesLoaded struct {
	kind  string
	types []string
	err   error
}

type mergeDone struct {
	result *common.MergeResult
	err    error
}

type entitySaved struct {
	draft EntityDraft
	err   error
}

type entityDeleted struct {
	id  common.ID
	err error
}

type edgeSaved struct {
	draft EdgeDraft
	err   error
}
