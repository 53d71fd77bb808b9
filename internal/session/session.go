// Package session holds the server-side state of one connected console: the
// navigation context, the interaction mode, the merge workflow, and the
// layout engine driving the browser's drawing surface. One goroutine per
// session processes browser events and load results in arrival order; it is
// the only writer of all session state.
package session

import (
	"context"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/metric"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/backend"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/layout"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/layout/visnetwork"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/logger"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/palette"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/viewmodel"
)

// Backend is everything the session needs from the graph service.
// *backend.Client satisfies it.
type Backend interface {
	Loader

	ListGraphs(ctx context.Context) ([]common.Graph, error)
	EntityTypes(ctx context.Context) ([]string, error)
	RelationTypes(ctx context.Context) ([]string, error)

	UpdateEntity(ctx context.Context, entityID common.ID, params backend.UpdateEntityParams) (*common.Entity, error)
	DeleteEntity(ctx context.Context, entityID common.ID) error
	MergeEntities(ctx context.Context, params backend.MergeEntitiesParams) (*common.MergeResult, error)
	UpdateRelation(ctx context.Context, relationID common.ID, params backend.UpdateRelationParams) (*common.Relationship, error)
}

// Session is one connected console.
type Session struct {
	id      string
	backend Backend
	metrics *metric.Metrics

	ctrl   *Controller
	engine *visnetwork.Engine
	norm   *viewmodel.Normalizer

	send    func(Outbound) error
	inbound chan any
	spawn   func(func())
	ctx     context.Context

	mode  Mode
	drill bool

	// Normalized view of the displayed subgraph, indexed for detail lookup.
	nodes map[string]viewmodel.Node
	edges map[string]viewmodel.Edge
}

// Params configures a Session.
type Params struct {
	ID      string
	Backend Backend
	Palette *palette.Palette
	Metrics *metric.Metrics
	// Context bounds the session lifetime. Nil means context.Background().
	Context context.Context
	// Send delivers one message to the browser.
	Send func(Outbound) error
}

// New creates a session. Run must be called to start processing. The context
// is fixed here, before any goroutine exists, so concurrent Deliver and Run
// never touch mutable session fields.
func New(params Params) *Session {
	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Session{
		id:      params.ID,
		backend: params.Backend,
		metrics: params.Metrics,
		ctx:     ctx,
		send:    params.Send,
		inbound: make(chan any, 64),
		spawn:   func(fn func()) { go fn() },
		mode:    Viewing{},
		nodes:   map[string]viewmodel.Node{},
		edges:   map[string]viewmodel.Edge{},
	}
	s.ctrl = NewController(params.Backend)
	s.norm = viewmodel.NewNormalizer(params.Palette)
	s.engine = visnetwork.New(s.handleClick)
	s.engine.Attach(func(cmd visnetwork.Command) error {
		return s.send(Outbound{Kind: KindEngine, Engine: &cmd})
	})
	return s
}

// Run processes events until the session context is cancelled. The graph
// list and the type lists are fetched up front, in parallel, so the root
// selector and the editor dropdowns are populated before the first
// interaction.
func (s *Session) Run() {
	s.spawn(func() {
		graphs, err := s.backend.ListGraphs(s.ctx)
		s.post(graphsLoaded{graphs: graphs, err: err})
	})
	s.spawn(func() {
		types, err := s.backend.EntityTypes(s.ctx)
		s.post(typesLoaded{kind: TypeKindEntity, types: types, err: err})
	})
	s.spawn(func() {
		types, err := s.backend.RelationTypes(s.ctx)
		s.post(typesLoaded{kind: TypeKindRelation, types: types, err: err})
	})

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.inbound:
			s.dispatch(ev)
		}
	}
}

// Deliver hands a browser message to the session loop.
func (s *Session) Deliver(msg Inbound) {
	s.post(msg)
}

func (s *Session) post(ev any) {
	select {
	case s.inbound <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) dispatch(ev any) {
	switch e := ev.(type) {
	case Inbound:
		s.handleInbound(e)
	case LoadResult:
		s.handleLoadResult(e)
	case graphsLoaded:
		s.handleGraphsLoaded(e)
	case typesLoaded:
		s.handleTypesLoaded(e)
	case mergeDone:
		s.handleMergeDone(e)
	case entitySaved:
		s.handleEntitySaved(e)
	case entityDeleted:
		s.handleEntityDeleted(e)
	case edgeSaved:
		s.handleEdgeSaved(e)
	default:
		logger.Warn("Session received unknown event", "session", s.id)
	}
}

func (s *Session) handleInbound(msg Inbound) {
	switch msg.Type {
	case MsgSelectGraph:
		s.startLoad(s.ctrl.SelectGraph(msg.GraphID))
		s.renderCurrent()
		s.sendModeState()
	case MsgSelectCategory:
		if msg.CategoryID == "" {
			s.startLoad(s.ctrl.ClearCategory())
		} else {
			s.startLoad(s.ctrl.SelectCategory(msg.CategoryID))
		}
		s.sendModeState()
	case MsgClearCategory:
		s.startLoad(s.ctrl.ClearCategory())
		s.sendModeState()
	case MsgSelectDocument:
		s.startLoad(s.ctrl.SelectDocument(msg.DocumentID))
		s.sendModeState()
	case MsgClearDocument:
		s.startLoad(s.ctrl.ClearDocument())
		s.sendModeState()
	case MsgViewNeighborhood:
		s.startLoad(s.ctrl.EnterNeighborhood(msg.EntityID, msg.Hops))
		s.sendModeState()
	case MsgResetView:
		s.startLoad(s.ctrl.ResetView())
		s.sendModeState()

	case MsgClick, MsgContext, MsgStabilized:
		s.engine.HandleEvent(layout.Event{
			Type:       msg.Type,
			Generation: msg.Generation,
			NodeIDs:    msg.NodeIDs,
			EdgeIDs:    msg.EdgeIDs,
		})

	case MsgRefit:
		s.engine.Refit()
	case MsgZoom:
		s.engine.Zoom(msg.Factor)

	case MsgToggleMerge:
		s.toggleMerge()
	case MsgToggleDrill:
		s.drill = !s.drill
		s.sendModeState()
	case MsgConfirmMerge:
		s.confirmMerge(msg)
	case MsgCancelMerge:
		s.cancelMerge()

	case MsgEditEntity:
		s.openEntityEditor(msg.ID)
	case MsgSaveEntity:
		s.saveEntity(msg)
	case MsgDeleteEntity:
		s.deleteEntity(msg.ID)
	case MsgEditEdge:
		s.openEdgeEditor(msg.ID)
	case MsgSaveEdge:
		s.saveEdge(msg)
	case MsgCancelEdit:
		s.mode = Viewing{}
		s.sendKind(KindCloseEditor)
		s.sendModeState()

	default:
		logger.Warn("Unknown message type", "session", s.id, "type", msg.Type)
	}
}

// startLoad executes a pending load off the loop and posts its result back.
func (s *Session) startLoad(load *Load) {
	if load == nil {
		return
	}
	ctx := s.ctx
	s.spawn(func() {
		s.post(load.Fetch(ctx))
	})
}

func (s *Session) handleLoadResult(res LoadResult) {
	outcome := s.ctrl.Apply(res)
	switch outcome {
	case Stale:
		// Expected during fast navigation; the newer load owns the view.
		s.metrics.SubgraphLoads.WithLabelValues(string(res.Scope), metric.OutcomeStale).Inc()
		logger.Debug("Discarded stale load", "session", s.id, "scope", res.Scope, "seq", res.Seq)
	case Failed:
		s.metrics.SubgraphLoads.WithLabelValues(string(res.Scope), metric.OutcomeFailed).Inc()
		logger.Error("Subgraph load failed", "session", s.id, "scope", res.Scope, "err", res.Err)
		s.notify(LevelError, "Failed to load the "+string(res.Scope)+" view")
	case Applied:
		s.metrics.SubgraphLoads.WithLabelValues(string(res.Scope), metric.OutcomeApplied).Inc()
		s.renderCurrent()
		s.sendModeState()
		if res.HasDocuments || res.HasCategories {
			lists := &Lists{}
			if res.HasDocuments {
				lists.Documents = s.ctrl.Documents()
			}
			if res.HasCategories {
				lists.Categories = s.ctrl.Categories()
			}
			s.sendMsg(Outbound{Kind: KindLists, Lists: lists})
		}
	}
}

// renderCurrent rebuilds the view model from the controller's data and
// replaces the rendered graph. The node/edge indexes used by detail panels
// and editors are rebuilt alongside.
func (s *Session) renderCurrent() {
	var nodes []viewmodel.Node
	var edges []viewmodel.Edge
	opts := layout.Options{ShowEdgeLabels: true, EdgeLength: 150}

	if nb := s.ctrl.Neighborhood(); nb != nil {
		nodes, edges = s.norm.NormalizeNeighborhood(*nb)
		opts.CenterID = nb.CenterEntity.ID.String()
	} else if sub := s.ctrl.Subgraph(); sub != nil {
		nodes, edges = s.norm.Normalize(sub.Entities, sub.Relationships, "")
	} else {
		return
	}

	s.nodes = make(map[string]viewmodel.Node, len(nodes))
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	s.edges = make(map[string]viewmodel.Edge, len(edges))
	for _, e := range edges {
		s.edges[e.ID] = e
	}

	if err := s.engine.Render(nodes, edges, opts); err != nil {
		logger.Warn("Render failed", "session", s.id, "err", err)
	}
}

// handleClick is the selection interaction handler. Invoked synchronously by
// the engine while the loop processes a surface event.
func (s *Session) handleClick(ev layout.ClickEvent) {
	// Secondary activation always opens the detail panel, whatever the mode.
	if ev.Secondary {
		switch {
		case len(ev.NodeIDs) > 0:
			s.sendNodeDetail(ev.NodeIDs[0])
		case len(ev.EdgeIDs) > 0:
			s.sendEdgeDetail(ev.EdgeIDs[0])
		}
		return
	}

	if len(ev.NodeIDs) > 0 {
		nodeID := ev.NodeIDs[0]
		switch m := s.mode.(type) {
		case Merging:
			s.mergeSelect(m, nodeID)
		case Viewing:
			if s.drill {
				s.startLoad(s.ctrl.EnterNeighborhood(common.ID(nodeID), 1))
				s.sendModeState()
			} else {
				s.sendNodeDetail(nodeID)
			}
		}
		return
	}

	if len(ev.EdgeIDs) > 0 {
		if _, merging := s.mode.(Merging); !merging {
			s.sendEdgeDetail(ev.EdgeIDs[0])
		}
		return
	}
	// Empty canvas: nothing to do.
}

func (s *Session) toggleMerge() {
	if _, merging := s.mode.(Merging); merging {
		s.mode = Viewing{}
		s.engine.SelectNodes(nil)
		s.notify(LevelInfo, "Merge mode off")
	} else {
		s.mode = Merging{}
		s.engine.SelectNodes(nil)
		s.notify(LevelInfo, "Merge mode on: select two entities to merge")
	}
	s.sendModeState()
}

func (s *Session) mergeSelect(m Merging, nodeID string) {
	selection, action := toggleMergeCandidate(m.Selection, nodeID)
	// A rejected third pick leaves the confirmed pair in place.
	confirming := action == MergeReady || (action == MergeRejected && m.Confirming)
	s.mode = Merging{Selection: selection, Confirming: confirming}
	s.engine.SelectNodes(selection)
	if m.Confirming && !confirming {
		s.sendKind(KindCloseMerge)
	}

	switch action {
	case MergeRejected:
		s.notify(LevelWarning, "Two entities are already selected; deselect one first")
	case MergeReady:
		source := s.nodes[selection[0]]
		target := s.nodes[selection[1]]
		s.sendMsg(Outbound{Kind: KindMergePrompt, MergePrompt: &MergePrompt{
			SourceID:    selection[0],
			SourceLabel: source.Label,
			TargetID:    selection[1],
			TargetLabel: target.Label,
			MergedName:  target.Label,
		}})
	}
}

func (s *Session) confirmMerge(msg Inbound) {
	m, ok := s.mode.(Merging)
	if !ok || len(m.Selection) != 2 {
		s.notify(LevelWarning, "Select two entities before merging")
		return
	}

	params := backend.MergeEntitiesParams{
		SourceEntityID:    common.ID(m.Selection[0]),
		TargetEntityID:    common.ID(m.Selection[1]),
		MergedName:        msg.MergedName,
		MergedDescription: msg.MergedDescription,
	}
	ctx := s.ctx
	s.spawn(func() {
		result, err := s.backend.MergeEntities(ctx, params)
		s.post(mergeDone{result: result, err: err})
	})
}

func (s *Session) handleMergeDone(done mergeDone) {
	if done.err != nil {
		s.metrics.Merges.WithLabelValues("failed").Inc()
		logger.Error("Merge request failed", "session", s.id, "err", done.err)
		// Dialog stays open, selection intact, user may retry or cancel.
		s.notify(LevelError, "Merge failed: "+done.err.Error())
		return
	}
	if !done.result.Success {
		s.metrics.Merges.WithLabelValues("rejected").Inc()
		s.notify(LevelError, "Merge failed: "+done.result.Message)
		return
	}

	s.metrics.Merges.WithLabelValues("committed").Inc()
	s.sendKind(KindCloseMerge)
	s.mode = Viewing{}
	s.engine.SelectNodes(nil)
	message := done.result.Message
	if message == "" {
		message = "Entities merged"
	}
	s.notify(LevelInfo, message)
	s.startLoad(s.ctrl.ReloadActive())
	s.sendModeState()
}

func (s *Session) cancelMerge() {
	if _, ok := s.mode.(Merging); !ok {
		return
	}
	// Merge mode stays armed for another attempt.
	s.mode = Merging{}
	s.engine.SelectNodes(nil)
	s.sendKind(KindCloseMerge)
	s.sendModeState()
}

func (s *Session) openEntityEditor(id common.ID) {
	node, ok := s.nodes[id.String()]
	if !ok {
		s.notify(LevelWarning, "Entity is not in the current view")
		return
	}

	draft := EntityDraft{
		EntityID:    id,
		Name:        node.Label,
		Type:        node.Type,
		Description: propString(node.Properties, "description"),
		GraphID:     s.ctrl.Nav().GraphID,
	}
	s.mode = EditingEntity{Draft: draft}
	s.sendMsg(Outbound{Kind: KindEditor, Editor: &EditorOpen{Entity: &draft}})
	s.sendModeState()

	ctx := s.ctx
	s.spawn(func() {
		types, err := s.backend.EntityTypes(ctx)
		s.post(typesLoaded{kind: TypeKindEntity, types: types, err: err})
	})
}

func (s *Session) saveEntity(msg Inbound) {
	m, ok := s.mode.(EditingEntity)
	if !ok {
		return
	}

	draft := m.Draft
	draft.Name = msg.Name
	draft.Type = msg.EntityType
	draft.Description = msg.Description
	s.mode = EditingEntity{Draft: draft}

	if field := invalidField(draft); field != "" {
		s.sendMsg(Outbound{Kind: KindInvalid, Invalid: &InvalidField{
			Field:   field,
			Message: "Entity name is required",
		}})
		return
	}

	ctx := s.ctx
	s.spawn(func() {
		_, err := s.backend.UpdateEntity(ctx, draft.EntityID, backend.UpdateEntityParams{
			Name:        draft.Name,
			EntityType:  draft.Type,
			Description: draft.Description,
			GraphID:     draft.GraphID,
		})
		s.post(entitySaved{draft: draft, err: err})
	})
}

func (s *Session) handleEntitySaved(done entitySaved) {
	if done.err != nil {
		s.metrics.Edits.WithLabelValues("entity", "failed").Inc()
		logger.Error("Entity update failed", "session", s.id, "entity", done.draft.EntityID, "err", done.err)
		// Editor stays open with the unsaved draft.
		s.notify(LevelError, "Failed to save entity: "+done.err.Error())
		return
	}

	s.metrics.Edits.WithLabelValues("entity", "saved").Inc()
	// Patch the display immediately; the reload reconciles with server truth.
	s.ctrl.PatchEntity(done.draft.EntityID, done.draft.Name, done.draft.Type, done.draft.Description)
	s.renderCurrent()
	s.mode = Viewing{}
	s.sendKind(KindCloseEditor)
	s.notify(LevelInfo, "Entity updated")
	s.startLoad(s.ctrl.ReloadActive())
	s.sendModeState()
}

func (s *Session) deleteEntity(id common.ID) {
	if id == "" {
		return
	}
	ctx := s.ctx
	s.spawn(func() {
		err := s.backend.DeleteEntity(ctx, id)
		s.post(entityDeleted{id: id, err: err})
	})
}

func (s *Session) handleEntityDeleted(done entityDeleted) {
	if done.err != nil {
		s.metrics.Edits.WithLabelValues("entity", "delete_failed").Inc()
		logger.Error("Entity delete failed", "session", s.id, "entity", done.id, "err", done.err)
		s.notify(LevelError, "Failed to delete entity: "+done.err.Error())
		return
	}

	s.metrics.Edits.WithLabelValues("entity", "deleted").Inc()
	s.mode = Viewing{}
	s.engine.SelectNodes(nil)
	s.sendKind(KindCloseDetail)
	s.sendKind(KindCloseEditor)
	s.notify(LevelInfo, "Entity deleted")
	s.startLoad(s.ctrl.ReloadActive())
	s.sendModeState()
}

func (s *Session) openEdgeEditor(id common.ID) {
	edge, ok := s.edges[id.String()]
	if !ok {
		s.notify(LevelWarning, "Relationship is not in the current view")
		return
	}

	draft := EdgeDraft{
		RelationID:   id,
		RelationType: edge.Label,
		Description:  edge.Description,
		GraphID:      s.ctrl.Nav().GraphID,
	}
	s.mode = EditingEdge{Draft: draft}
	s.sendMsg(Outbound{Kind: KindEditor, Editor: &EditorOpen{Edge: &draft}})
	s.sendModeState()

	ctx := s.ctx
	s.spawn(func() {
		types, err := s.backend.RelationTypes(ctx)
		s.post(typesLoaded{kind: TypeKindRelation, types: types, err: err})
	})
}

func (s *Session) saveEdge(msg Inbound) {
	m, ok := s.mode.(EditingEdge)
	if !ok {
		return
	}

	draft := m.Draft
	draft.RelationType = msg.RelationType
	draft.Description = msg.Description
	s.mode = EditingEdge{Draft: draft}

	if field := invalidField(draft); field != "" {
		s.sendMsg(Outbound{Kind: KindInvalid, Invalid: &InvalidField{
			Field:   field,
			Message: "Relation type is required",
		}})
		return
	}

	ctx := s.ctx
	s.spawn(func() {
		_, err := s.backend.UpdateRelation(ctx, draft.RelationID, backend.UpdateRelationParams{
			RelationType: draft.RelationType,
			Description:  draft.Description,
			GraphID:      draft.GraphID,
		})
		s.post(edgeSaved{draft: draft, err: err})
	})
}

func (s *Session) handleEdgeSaved(done edgeSaved) {
	if done.err != nil {
		s.metrics.Edits.WithLabelValues("relationship", "failed").Inc()
		logger.Error("Relationship update failed", "session", s.id, "relation", done.draft.RelationID, "err", done.err)
		s.notify(LevelError, "Failed to save relationship: "+done.err.Error())
		return
	}

	s.metrics.Edits.WithLabelValues("relationship", "saved").Inc()
	// Patch the display immediately; the reload reconciles with server truth.
	s.ctrl.PatchRelation(done.draft.RelationID, done.draft.RelationType, done.draft.Description)
	s.renderCurrent()
	s.mode = Viewing{}
	s.sendKind(KindCloseEditor)
	s.notify(LevelInfo, "Relationship updated")
	s.startLoad(s.ctrl.ReloadActive())
	s.sendModeState()
}

func (s *Session) handleGraphsLoaded(done graphsLoaded) {
	if done.err != nil {
		logger.Error("Graph list load failed", "session", s.id, "err", done.err)
		s.notify(LevelError, "Failed to load graphs")
		return
	}
	s.sendMsg(Outbound{Kind: KindLists, Lists: &Lists{Graphs: done.graphs}})
}

func (s *Session) handleTypesLoaded(done typesLoaded) {
	if done.err != nil {
		// The dropdown stays free-text; the editor remains usable.
		logger.Warn("Type list load failed", "session", s.id, "kind", done.kind, "err", done.err)
		return
	}
	s.sendMsg(Outbound{Kind: KindTypes, TypeOptions: &TypeOptions{Kind: done.kind, Types: done.types}})
}

func (s *Session) sendNodeDetail(id string) {
	node, ok := s.nodes[id]
	if !ok {
		return
	}
	s.sendMsg(Outbound{Kind: KindDetail, Detail: &Detail{Node: &node}})
}

func (s *Session) sendEdgeDetail(id string) {
	edge, ok := s.edges[id]
	if !ok {
		return
	}
	s.sendMsg(Outbound{Kind: KindDetail, Detail: &Detail{Edge: &edge}})
}

func (s *Session) sendModeState() {
	nav := s.ctrl.Nav()
	_, merging := s.mode.(Merging)
	s.sendMsg(Outbound{Kind: KindModeState, ModeState: &ModeState{
		Merge:        merging,
		Drill:        s.drill,
		Neighborhood: nav.Neighborhood,
		CenterID:     nav.CenterID.String(),
	}})
}

func (s *Session) notify(level, message string) {
	s.sendMsg(Outbound{Kind: KindNotify, Notify: &Notification{Level: level, Message: message}})
}

func (s *Session) sendKind(kind string) {
	s.sendMsg(Outbound{Kind: kind})
}

func (s *Session) sendMsg(msg Outbound) {
	if err := s.send(msg); err != nil {
		logger.Warn("Failed to deliver message", "session", s.id, "kind", msg.Kind, "err", err)
	}
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
