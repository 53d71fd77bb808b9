package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/palette"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/viewmodel"
)

// fakeLoader serves canned subgraphs and records call counts.
type fakeLoader struct {
	graphs        map[common.ID]*common.Subgraph
	categories    map[common.ID]*common.Subgraph
	documents     map[common.ID]*common.Subgraph
	neighborhoods map[common.ID]*common.Neighborhood

	categoryErr error

	graphCalls        int
	categoryCalls     int
	documentCalls     int
	neighborhoodCalls int
}

func (f *fakeLoader) GraphSubgraph(_ context.Context, graphID common.ID) (*common.Subgraph, error) {
	f.graphCalls++
	if sub, ok := f.graphs[graphID]; ok {
		return copySubgraph(sub), nil
	}
	return &common.Subgraph{}, nil
}

func (f *fakeLoader) CategorySubgraph(_ context.Context, categoryID common.ID) (*common.Subgraph, error) {
	f.categoryCalls++
	if f.categoryErr != nil {
		return nil, f.categoryErr
	}
	if sub, ok := f.categories[categoryID]; ok {
		return copySubgraph(sub), nil
	}
	return &common.Subgraph{}, nil
}

func (f *fakeLoader) DocumentSubgraph(_ context.Context, documentID common.ID) (*common.Subgraph, error) {
	f.documentCalls++
	if sub, ok := f.documents[documentID]; ok {
		return copySubgraph(sub), nil
	}
	return &common.Subgraph{}, nil
}

func (f *fakeLoader) EntityNeighborhood(_ context.Context, entityID common.ID, _ int) (*common.Neighborhood, error) {
	f.neighborhoodCalls++
	if nb, ok := f.neighborhoods[entityID]; ok {
		return nb, nil
	}
	return &common.Neighborhood{}, nil
}

func (f *fakeLoader) ListCategories(_ context.Context, _ common.ID) ([]common.Category, error) {
	return []common.Category{{ID: "c1", Name: "history"}}, nil
}

func (f *fakeLoader) ListDocuments(_ context.Context, _, categoryID common.ID) ([]common.Document, error) {
	if categoryID != "" {
		return []common.Document{{ID: "d1", Title: "filtered"}}, nil
	}
	return []common.Document{{ID: "d1", Title: "filtered"}, {ID: "d2", Title: "other"}}, nil
}

func copySubgraph(sub *common.Subgraph) *common.Subgraph {
	out := &common.Subgraph{
		Entities:      append([]common.Entity(nil), sub.Entities...),
		Relationships: append([]common.Relationship(nil), sub.Relationships...),
	}
	return out
}

// demoGraph: two Persons, one Organization, works_at and knows
// relationships.
func demoGraph() *common.Subgraph {
	return &common.Subgraph{
		Entities: []common.Entity{
			{ID: "e1", Name: "Ada", Type: "Person", GraphID: "g1"},
			{ID: "e2", Name: "Acme", Type: "Organization", GraphID: "g1"},
			{ID: "e3", Name: "Grace", Type: "Person", GraphID: "g1"},
		},
		Relationships: []common.Relationship{
			{ID: "r1", RelationType: "works_at", SourceEntityID: "e1", TargetEntityID: "e2"},
			{ID: "r2", RelationType: "knows", SourceEntityID: "e1", TargetEntityID: "e3"},
		},
	}
}

func demoLoader() *fakeLoader {
	return &fakeLoader{
		graphs: map[common.ID]*common.Subgraph{"g1": demoGraph()},
		neighborhoods: map[common.ID]*common.Neighborhood{
			"e1": {
				CenterEntity: common.Entity{ID: "e1", Name: "Ada", Type: "Person"},
				Entities: []common.Entity{
					{ID: "e2", Name: "Acme", Type: "Organization"},
					{ID: "e3", Name: "Grace", Type: "Person"},
				},
				Relationships: []common.NeighborhoodRelationship{
					{ID: "r1", Type: "works_at", SourceID: "e1", TargetID: "e2"},
					{ID: "r2", Type: "knows", SourceID: "e1", TargetID: "e3"},
				},
			},
		},
	}
}

func runLoad(t *testing.T, c *Controller, load *Load) ApplyOutcome {
	t.Helper()
	require.NotNil(t, load)
	return c.Apply(load.Fetch(context.Background()))
}

func TestWholeGraphLoad(t *testing.T) {
	loader := demoLoader()
	c := NewController(loader)

	outcome := runLoad(t, c, c.SelectGraph("g1"))
	require.Equal(t, Applied, outcome)
	require.Len(t, c.Subgraph().Entities, 3)
	require.Len(t, c.Subgraph().Relationships, 2)
	assert.Len(t, c.Documents(), 2)
	assert.Len(t, c.Categories(), 1)

	nodes, edges := viewmodel.NewNormalizer(palette.New()).
		Normalize(c.Subgraph().Entities, c.Subgraph().Relationships, "")

	colors := []string{nodes[0].Color, nodes[1].Color, nodes[2].Color}
	assert.Equal(t, []string{palette.PersonRed, palette.OrganizationBlue, palette.PersonRed}, colors)

	labels := []string{edges[0].Label, edges[1].Label}
	assert.Equal(t, []string{"works_at", "knows"}, labels)

	byType := map[string]int{}
	for _, n := range nodes {
		byType[n.Type]++
	}
	assert.Equal(t, map[string]int{"Person": 2, "Organization": 1}, byType)
}

func TestStaleLoadDiscarded(t *testing.T) {
	loader := &fakeLoader{
		graphs: map[common.ID]*common.Subgraph{"g1": demoGraph()},
		categories: map[common.ID]*common.Subgraph{
			"X": {Entities: []common.Entity{{ID: "x1", Name: "from X"}}},
			"Y": {Entities: []common.Entity{{ID: "y1", Name: "from Y"}}},
		},
	}
	c := NewController(loader)
	require.Equal(t, Applied, runLoad(t, c, c.SelectGraph("g1")))

	loadX := c.SelectCategory("X")
	loadY := c.SelectCategory("Y")

	resX := loadX.Fetch(context.Background())
	resY := loadY.Fetch(context.Background())

	// Y resolves first, X arrives late.
	require.Equal(t, Applied, c.Apply(resY))
	require.Equal(t, Stale, c.Apply(resX))

	require.Len(t, c.Subgraph().Entities, 1)
	assert.Equal(t, common.ID("y1"), c.Subgraph().Entities[0].ID)
	assert.Equal(t, common.ID("Y"), c.Nav().CategoryID)
}

func TestNeighborhoodDrillThenReset(t *testing.T) {
	loader := demoLoader()
	c := NewController(loader)
	require.Equal(t, Applied, runLoad(t, c, c.SelectGraph("g1")))
	original := copySubgraph(c.Subgraph())

	require.Equal(t, Applied, runLoad(t, c, c.EnterNeighborhood("e1", 1)))
	require.True(t, c.Nav().Neighborhood)
	assert.Equal(t, ScopeNeighborhood, c.Nav().ActiveScope())

	nb := c.Neighborhood()
	require.NotNil(t, nb)
	union := viewmodel.UnionNeighborhood(nb.CenterEntity, nb.Entities)
	ids := make([]common.ID, 0, len(union))
	for _, e := range union {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []common.ID{"e1", "e2", "e3"}, ids)
	assert.Len(t, nb.Relationships, 2)

	require.Equal(t, Applied, runLoad(t, c, c.ResetView()))
	assert.False(t, c.Nav().Neighborhood)
	assert.Nil(t, c.Neighborhood())
	assert.Equal(t, original, c.Subgraph())
}

func TestFailedLoadPreservesState(t *testing.T) {
	loader := demoLoader()
	c := NewController(loader)
	require.Equal(t, Applied, runLoad(t, c, c.SelectGraph("g1")))
	before := copySubgraph(c.Subgraph())

	loader.categoryErr = errors.New("backend down")
	outcome := runLoad(t, c, c.SelectCategory("c1"))

	require.Equal(t, Failed, outcome)
	assert.Equal(t, before, c.Subgraph())
}

func TestSelectGraphResetsEverything(t *testing.T) {
	loader := demoLoader()
	c := NewController(loader)
	require.Equal(t, Applied, runLoad(t, c, c.SelectGraph("g1")))
	require.Equal(t, Applied, runLoad(t, c, c.SelectCategory("c1")))
	require.Equal(t, Applied, runLoad(t, c, c.EnterNeighborhood("e1", 1)))

	load := c.SelectGraph("g2")
	require.NotNil(t, load)

	nav := c.Nav()
	assert.Equal(t, common.ID("g2"), nav.GraphID)
	assert.Empty(t, nav.CategoryID)
	assert.Empty(t, nav.DocumentID)
	assert.False(t, nav.Neighborhood)
	assert.Empty(t, c.Subgraph().Entities)
	assert.Nil(t, c.Neighborhood())
}

func TestResetViewPriority(t *testing.T) {
	loader := demoLoader()
	loader.documents = map[common.ID]*common.Subgraph{
		"d1": {Entities: []common.Entity{{ID: "e9", Name: "doc only"}}},
	}
	c := NewController(loader)
	require.Equal(t, Applied, runLoad(t, c, c.SelectGraph("g1")))
	require.Equal(t, Applied, runLoad(t, c, c.SelectCategory("c1")))
	require.Equal(t, Applied, runLoad(t, c, c.SelectDocument("d1")))
	require.Equal(t, Applied, runLoad(t, c, c.EnterNeighborhood("e1", 1)))

	// Document outranks the category on exit.
	load := c.ResetView()
	require.NotNil(t, load)
	assert.Equal(t, ScopeDocument, load.Scope)
	require.Equal(t, Applied, c.Apply(load.Fetch(context.Background())))
	assert.Equal(t, common.ID("e9"), c.Subgraph().Entities[0].ID)

	// Dropping the document falls back to the category.
	load = c.ClearDocument()
	require.NotNil(t, load)
	assert.Equal(t, ScopeCategory, load.Scope)
}

func TestCategoryLoadRefreshesFilteredDocuments(t *testing.T) {
	loader := demoLoader()
	c := NewController(loader)
	require.Equal(t, Applied, runLoad(t, c, c.SelectGraph("g1")))
	require.Len(t, c.Documents(), 2)

	require.Equal(t, Applied, runLoad(t, c, c.SelectCategory("c1")))
	require.Len(t, c.Documents(), 1)
	assert.Equal(t, "filtered", c.Documents()[0].Title)

	require.Equal(t, Applied, runLoad(t, c, c.ClearCategory()))
	assert.Len(t, c.Documents(), 2)
}

func TestNavigationWithoutGraphIsNil(t *testing.T) {
	c := NewController(demoLoader())
	assert.Nil(t, c.SelectCategory("c1"))
	assert.Nil(t, c.SelectDocument("d1"))
	assert.Nil(t, c.EnterNeighborhood("e1", 1))
	assert.Nil(t, c.ResetView())
	assert.Nil(t, c.ReloadActive())
}
