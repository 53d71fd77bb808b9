package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Params{BaseURL: server.URL})
}

func TestGraphSubgraph(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphs/g1/subgraph" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"entities": [{"id": 1, "name": "Ada", "type": "Person"}],
			"relationships": [{"id": 9, "relation_type": "knows", "source_entity_id": 1, "target_entity_id": 2}]
		}`))
	})

	sub, err := client.GraphSubgraph(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Entities) != 1 || sub.Entities[0].ID != "1" {
		t.Errorf("entities = %+v", sub.Entities)
	}
	if sub.Relationships[0].SourceEntityID != "1" {
		t.Errorf("numeric endpoint not stringified: %+v", sub.Relationships[0])
	}
}

func TestEntityNeighborhoodShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entities/e1/subgraph" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("hops") != "2" {
			t.Errorf("hops = %q", r.URL.Query().Get("hops"))
		}
		json.NewEncoder(w).Encode(common.Neighborhood{
			CenterEntity: common.Entity{ID: "e1", Name: "Ada"},
			Entities:     []common.Entity{{ID: "e2", Name: "Acme"}},
			Relationships: []common.NeighborhoodRelationship{
				{ID: "r1", Type: "works_at", SourceID: "e1", TargetID: "e2"},
			},
			TotalEntities:      2,
			TotalRelationships: 1,
		})
	})

	nb, err := client.EntityNeighborhood(context.Background(), "e1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if nb.CenterEntity.ID != "e1" || len(nb.Entities) != 1 {
		t.Errorf("neighborhood = %+v", nb)
	}
	if nb.Relationships[0].SourceID != "e1" {
		t.Errorf("legacy relationship shape not decoded: %+v", nb.Relationships[0])
	}
}

func TestEntityNeighborhoodDefaultsHops(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("hops") != "1" {
			t.Errorf("hops should default to 1, got %q", r.URL.Query().Get("hops"))
		}
		json.NewEncoder(w).Encode(common.Neighborhood{})
	})

	if _, err := client.EntityNeighborhood(context.Background(), "e1", 0); err != nil {
		t.Fatal(err)
	}
}

func TestMergeEntities(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/entities/merge" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var params MergeEntitiesParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Fatal(err)
		}
		if params.SourceEntityID != "e2" || params.TargetEntityID != "e3" {
			t.Errorf("params = %+v", params)
		}
		json.NewEncoder(w).Encode(common.MergeResult{Success: true, Message: "merged"})
	})

	result, err := client.MergeEntities(context.Background(), MergeEntitiesParams{
		SourceEntityID: "e2",
		TargetEntityID: "e3",
		MergedName:     "Acme",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
}

func TestUpdateEntity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/entities/e1" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var params UpdateEntityParams
		json.NewDecoder(r.Body).Decode(&params)
		json.NewEncoder(w).Encode(common.Entity{ID: "e1", Name: params.Name, Type: params.EntityType})
	})

	entity, err := client.UpdateEntity(context.Background(), "e1", UpdateEntityParams{
		Name: "Ada Lovelace", EntityType: "Person", GraphID: "g1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if entity.Name != "Ada Lovelace" {
		t.Errorf("entity = %+v", entity)
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail field", `{"detail": "entity not found"}`, "entity not found"},
		{"message field", `{"message": "boom"}`, "boom"},
		{"plain text", `service unavailable`, "service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(tt.body))
			})

			_, err := client.GraphSubgraph(context.Background(), "g1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != http.StatusNotFound || apiErr.Message != tt.want {
				t.Errorf("got %+v, want message %q", apiErr, tt.want)
			}
		})
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]common.Graph{{ID: "g1", Name: "demo"}})
	})

	graphs, err := client.ListGraphs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected one retry after 502, got %d calls", calls)
	}
	if len(graphs) != 1 || graphs[0].ID != "g1" {
		t.Errorf("graphs = %+v", graphs)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := client.ListGraphs(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 1 {
		t.Errorf("404 must not be retried, got %d calls", calls)
	}
}

func TestListDocumentsCategoryFilter(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]common.Document{{ID: "d1", Title: "intro"}})
	})

	docs, err := client.ListDocuments(context.Background(), "g1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "category_id=c1" {
		t.Errorf("query = %q", gotQuery)
	}
	if !reflect.DeepEqual(docs, []common.Document{{ID: "d1", Title: "intro"}}) {
		t.Errorf("docs = %+v", docs)
	}

	if _, err := client.ListDocuments(context.Background(), "g1", ""); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "" {
		t.Errorf("unfiltered list should carry no query, got %q", gotQuery)
	}
}
