package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
)

// Scope names the navigation scope a load belongs to. Also used as a metric
// label.
type Scope string

const (
	ScopeWholeGraph   Scope = "graph"
	ScopeCategory     Scope = "category"
	ScopeDocument     Scope = "document"
	ScopeNeighborhood Scope = "neighborhood"
)

// NavigationContext is the current position in the graph hierarchy. Exactly
// one scope is active at a time; the neighborhood is an overlay entered from
// and exited back to any of the other three.
type NavigationContext struct {
	GraphID    common.ID
	CategoryID common.ID
	DocumentID common.ID

	Neighborhood bool
	CenterID     common.ID
	Hops         int
}

// ActiveScope resolves the scope that determines the next subgraph load:
// neighborhood overlay first, then document, category, whole graph.
func (n NavigationContext) ActiveScope() Scope {
	switch {
	case n.Neighborhood:
		return ScopeNeighborhood
	case n.DocumentID != "":
		return ScopeDocument
	case n.CategoryID != "":
		return ScopeCategory
	default:
		return ScopeWholeGraph
	}
}

// Loader is the read side of the backend consumed by the controller.
// *backend.Client satisfies it.
type Loader interface {
	GraphSubgraph(ctx context.Context, graphID common.ID) (*common.Subgraph, error)
	CategorySubgraph(ctx context.Context, categoryID common.ID) (*common.Subgraph, error)
	DocumentSubgraph(ctx context.Context, documentID common.ID) (*common.Subgraph, error)
	EntityNeighborhood(ctx context.Context, entityID common.ID, hops int) (*common.Neighborhood, error)
	ListCategories(ctx context.Context, graphID common.ID) ([]common.Category, error)
	ListDocuments(ctx context.Context, graphID, categoryID common.ID) ([]common.Document, error)
}

// Load is one pending fetch, tagged with the sequence number that was current
// when it was issued. Fetch runs off the session loop; the result re-enters
// the loop and is applied only if the tag still matches.
type Load struct {
	Seq   uint64
	Scope Scope
	Fetch func(ctx context.Context) LoadResult
}

// LoadResult is the outcome of one Load.
type LoadResult struct {
	Seq   uint64
	Scope Scope
	Err   error

	Subgraph     *common.Subgraph
	Neighborhood *common.Neighborhood

	Documents     []common.Document
	HasDocuments  bool
	Categories    []common.Category
	HasCategories bool
}

// ApplyOutcome classifies what Apply did with a result.
type ApplyOutcome int

const (
	// Applied: the result replaced the active view data.
	Applied ApplyOutcome = iota
	// Stale: a newer load was issued after this one; the result is discarded.
	// Expected during fast navigation, not an error.
	Stale
	// Failed: the load errored; the previously displayed data is untouched.
	Failed
)

// Controller owns the navigation context and the active subgraph. It is the
// sole writer of both; all methods must be called from the session loop.
// Navigation methods return the Load to execute, or nil when the transition
// needs no fetch.
type Controller struct {
	loader Loader

	nav          NavigationContext
	seq          uint64
	subgraph     *common.Subgraph
	neighborhood *common.Neighborhood
	documents    []common.Document
	categories   []common.Category
}

// NewController creates a controller with an empty navigation context.
func NewController(loader Loader) *Controller {
	return &Controller{loader: loader}
}

// Nav returns the current navigation context.
func (c *Controller) Nav() NavigationContext { return c.nav }

// Subgraph returns the last-good outer subgraph, nil before the first load.
func (c *Controller) Subgraph() *common.Subgraph { return c.subgraph }

// Neighborhood returns the displayed neighborhood, nil when the overlay is
// not active or its data has not arrived yet.
func (c *Controller) Neighborhood() *common.Neighborhood { return c.neighborhood }

// Documents returns the document list for the current graph/category.
func (c *Controller) Documents() []common.Document { return c.documents }

// Categories returns the category list for the current graph.
func (c *Controller) Categories() []common.Category { return c.categories }

// SelectGraph switches the root graph. Category, document, neighborhood, and
// subgraph are all reset before the new whole-graph load is issued.
func (c *Controller) SelectGraph(graphID common.ID) *Load {
	c.nav = NavigationContext{GraphID: graphID}
	c.subgraph = &common.Subgraph{}
	c.neighborhood = nil
	c.documents = nil
	c.categories = nil
	return c.wholeGraphLoad(true)
}

// SelectCategory descends into a category. Any document selection and
// neighborhood overlay are cleared; the document list is re-fetched filtered
// by the category.
func (c *Controller) SelectCategory(categoryID common.ID) *Load {
	if c.nav.GraphID == "" {
		return nil
	}
	c.nav.CategoryID = categoryID
	c.nav.DocumentID = ""
	c.exitNeighborhood()

	seq := c.nextSeq()
	graphID := c.nav.GraphID
	return &Load{
		Seq:   seq,
		Scope: ScopeCategory,
		Fetch: func(ctx context.Context) LoadResult {
			res := LoadResult{Seq: seq, Scope: ScopeCategory, HasDocuments: true}
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				res.Subgraph, err = c.loader.CategorySubgraph(ctx, categoryID)
				return err
			})
			g.Go(func() (err error) {
				res.Documents, err = c.loader.ListDocuments(ctx, graphID, categoryID)
				return err
			})
			res.Err = g.Wait()
			return res
		},
	}
}

// ClearCategory returns to the whole-graph scope and restores the unfiltered
// document list.
func (c *Controller) ClearCategory() *Load {
	if c.nav.GraphID == "" {
		return nil
	}
	c.nav.CategoryID = ""
	c.nav.DocumentID = ""
	c.exitNeighborhood()
	return c.wholeGraphLoad(false)
}

// SelectDocument narrows the view to one document. Document selection takes
// priority over the category while active.
func (c *Controller) SelectDocument(documentID common.ID) *Load {
	if c.nav.GraphID == "" {
		return nil
	}
	c.nav.DocumentID = documentID
	c.exitNeighborhood()
	return c.subgraphLoad(ScopeDocument)
}

// ClearDocument drops the document selection and falls back to the category
// scope, or the whole graph when no category is set.
func (c *Controller) ClearDocument() *Load {
	if c.nav.GraphID == "" {
		return nil
	}
	c.nav.DocumentID = ""
	c.exitNeighborhood()
	return c.subgraphLoad(c.nav.ActiveScope())
}

// EnterNeighborhood overlays the 1-hop (or wider) neighborhood of one entity
// on top of the current outer selection.
func (c *Controller) EnterNeighborhood(entityID common.ID, hops int) *Load {
	if c.nav.GraphID == "" {
		return nil
	}
	if hops <= 0 {
		hops = 1
	}
	c.nav.Neighborhood = true
	c.nav.CenterID = entityID
	c.nav.Hops = hops
	return c.subgraphLoad(ScopeNeighborhood)
}

// ResetView exits the neighborhood overlay and reloads whichever of
// document, category, whole-graph is the outer selection, in that order.
func (c *Controller) ResetView() *Load {
	if c.nav.GraphID == "" {
		return nil
	}
	c.exitNeighborhood()
	return c.subgraphLoad(c.nav.ActiveScope())
}

// ReloadActive re-fetches the currently active scope, neighborhood overlay
// included. Used after merges and edits to reconcile with server truth.
func (c *Controller) ReloadActive() *Load {
	if c.nav.GraphID == "" {
		return nil
	}
	return c.subgraphLoad(c.nav.ActiveScope())
}

// Apply folds a load result into the controller. Stale results (a newer load
// was issued since) and failures leave all view data untouched.
func (c *Controller) Apply(res LoadResult) ApplyOutcome {
	if res.Seq != c.seq {
		return Stale
	}
	if res.Err != nil {
		return Failed
	}

	if res.Scope == ScopeNeighborhood {
		c.neighborhood = res.Neighborhood
		return Applied
	}

	c.subgraph = res.Subgraph
	c.neighborhood = nil
	if res.HasDocuments {
		c.documents = res.Documents
	}
	if res.HasCategories {
		c.categories = res.Categories
	}
	return Applied
}

// PatchEntity optimistically updates an entity's display fields in the
// loaded data. The following reload replaces this with server truth.
func (c *Controller) PatchEntity(id common.ID, name, entityType, description string) {
	patch := func(e *common.Entity) {
		if e.ID != id {
			return
		}
		e.Name = name
		e.Description = description
		if e.Type != "" || e.EntityType == "" {
			e.Type = entityType
		} else {
			e.EntityType = entityType
		}
	}

	if c.subgraph != nil {
		for i := range c.subgraph.Entities {
			patch(&c.subgraph.Entities[i])
		}
	}
	if c.neighborhood != nil {
		patch(&c.neighborhood.CenterEntity)
		for i := range c.neighborhood.Entities {
			patch(&c.neighborhood.Entities[i])
		}
	}
}

// PatchRelation optimistically updates a relationship's display fields in
// the loaded data, mirroring PatchEntity for the edge save path.
func (c *Controller) PatchRelation(id common.ID, relationType, description string) {
	if c.subgraph != nil {
		for i := range c.subgraph.Relationships {
			r := &c.subgraph.Relationships[i]
			if r.ID != id {
				continue
			}
			r.Description = description
			if r.RelationType != "" || r.Type == "" {
				r.RelationType = relationType
			} else {
				r.Type = relationType
			}
		}
	}
	if c.neighborhood != nil {
		for i := range c.neighborhood.Relationships {
			r := &c.neighborhood.Relationships[i]
			if r.ID != id {
				continue
			}
			r.Type = relationType
		}
	}
}

func (c *Controller) exitNeighborhood() {
	c.nav.Neighborhood = false
	c.nav.CenterID = ""
	c.nav.Hops = 0
	c.neighborhood = nil
}

func (c *Controller) nextSeq() uint64 {
	c.seq++
	return c.seq
}

// wholeGraphLoad fetches the whole-graph subgraph plus the unfiltered
// document list, and on first entry the category list as well.
func (c *Controller) wholeGraphLoad(withCategories bool) *Load {
	seq := c.nextSeq()
	graphID := c.nav.GraphID
	return &Load{
		Seq:   seq,
		Scope: ScopeWholeGraph,
		Fetch: func(ctx context.Context) LoadResult {
			res := LoadResult{
				Seq:           seq,
				Scope:         ScopeWholeGraph,
				HasDocuments:  true,
				HasCategories: withCategories,
			}
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				res.Subgraph, err = c.loader.GraphSubgraph(ctx, graphID)
				return err
			})
			g.Go(func() (err error) {
				res.Documents, err = c.loader.ListDocuments(ctx, graphID, "")
				return err
			})
			if withCategories {
				g.Go(func() (err error) {
					res.Categories, err = c.loader.ListCategories(ctx, graphID)
					return err
				})
			}
			res.Err = g.Wait()
			return res
		},
	}
}

// subgraphLoad fetches only the subgraph for the given scope, leaving the
// document and category lists as they are.
func (c *Controller) subgraphLoad(scope Scope) *Load {
	seq := c.nextSeq()
	nav := c.nav
	return &Load{
		Seq:   seq,
		Scope: scope,
		Fetch: func(ctx context.Context) LoadResult {
			res := LoadResult{Seq: seq, Scope: scope}
			switch scope {
			case ScopeNeighborhood:
				res.Neighborhood, res.Err = c.loader.EntityNeighborhood(ctx, nav.CenterID, nav.Hops)
			case ScopeDocument:
				res.Subgraph, res.Err = c.loader.DocumentSubgraph(ctx, nav.DocumentID)
			case ScopeCategory:
				res.Subgraph, res.Err = c.loader.CategorySubgraph(ctx, nav.CategoryID)
			default:
				res.Subgraph, res.Err = c.loader.GraphSubgraph(ctx, nav.GraphID)
			}
			return res
		},
	}
}
