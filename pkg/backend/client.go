// Package backend is the HTTP client for the graph service that owns
// persistence and the extraction pipeline. The console never touches storage
// directly; every read and write goes through this client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/util"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/common"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 2
)

// APIError is a non-2xx response from the graph service. Message carries the
// server-reported reason when the body had one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Client talks to the graph service REST API.
type Client struct {
	baseURL string
	http    *http.Client
	retries int

	// Type lists back the editor dropdowns and change rarely; concurrent
	// fetches for the same list are collapsed to one request.
	typeGroup singleflight.Group
}

// Params configures a Client.
type Params struct {
	BaseURL string
	// Timeout bounds every request. Zero means the 30s default.
	Timeout time.Duration
	// Retries bounds attempts for idempotent reads. Zero means 2 tries.
	// Writes are never retried.
	Retries int
}

// New creates a backend client.
func New(params Params) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := params.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Client{
		baseURL: params.BaseURL,
		http:    &http.Client{Timeout: timeout},
		retries: retries,
	}
}

// GraphSubgraph loads the whole-graph scope.
func (c *Client) GraphSubgraph(ctx context.Context, graphID common.ID) (*common.Subgraph, error) {
	var sub common.Subgraph
	if err := c.get(ctx, "/graphs/"+url.PathEscape(graphID.String())+"/subgraph", &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CategorySubgraph loads the subgraph scoped to one category.
func (c *Client) CategorySubgraph(ctx context.Context, categoryID common.ID) (*common.Subgraph, error) {
	var sub common.Subgraph
	if err := c.get(ctx, "/categories/"+url.PathEscape(categoryID.String())+"/subgraph", &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// DocumentSubgraph loads the subgraph scoped to one document.
func (c *Client) DocumentSubgraph(ctx context.Context, documentID common.ID) (*common.Subgraph, error) {
	var sub common.Subgraph
	if err := c.get(ctx, "/documents/"+url.PathEscape(documentID.String())+"/subgraph", &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// EntityNeighborhood loads the N-hop neighborhood around one entity. The
// result keeps the center separate and uses the legacy relationship shape;
// callers pass it through the view-model normalizer.
func (c *Client) EntityNeighborhood(ctx context.Context, entityID common.ID, hops int) (*common.Neighborhood, error) {
	if hops <= 0 {
		hops = 1
	}
	path := "/entities/" + url.PathEscape(entityID.String()) + "/subgraph?hops=" + strconv.Itoa(hops)

	var nb common.Neighborhood
	if err := c.get(ctx, path, &nb); err != nil {
		return nil, err
	}
	return &nb, nil
}

// UpdateEntityParams is the edit-entity payload.
type UpdateEntityParams struct {
	Name        string    `json:"name"`
	EntityType  string    `json:"entity_type"`
	Description string    `json:"description"`
	GraphID     common.ID `json:"graph_id"`
}

// UpdateEntity saves edited entity fields and returns the updated record.
func (c *Client) UpdateEntity(ctx context.Context, entityID common.ID, params UpdateEntityParams) (*common.Entity, error) {
	var entity common.Entity
	err := c.send(ctx, http.MethodPut, "/entities/"+url.PathEscape(entityID.String()), params, &entity)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// DeleteEntity removes an entity. The service cascades the entity's
// relationships.
func (c *Client) DeleteEntity(ctx context.Context, entityID common.ID) error {
	return c.send(ctx, http.MethodDelete, "/entities/"+url.PathEscape(entityID.String()), nil, nil)
}

// MergeEntitiesParams is the pairwise merge payload: source is absorbed into
// target.
type MergeEntitiesParams struct {
	SourceEntityID    common.ID `json:"source_entity_id"`
	TargetEntityID    common.ID `json:"target_entity_id"`
	MergedName        string    `json:"merged_name,omitempty"`
	MergedDescription string    `json:"merged_description,omitempty"`
}

// MergeEntities merges two entities. A MergeResult with Success false is
// returned without error; the transport succeeded, the merge did not.
func (c *Client) MergeEntities(ctx context.Context, params MergeEntitiesParams) (*common.MergeResult, error) {
	var result common.MergeResult
	if err := c.send(ctx, http.MethodPost, "/entities/merge", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateRelationParams is the edit-relationship payload.
type UpdateRelationParams struct {
	RelationType string    `json:"relation_type"`
	Description  string    `json:"description"`
	GraphID      common.ID `json:"graph_id"`
}

// UpdateRelation saves edited relationship fields.
func (c *Client) UpdateRelation(ctx context.Context, relationID common.ID, params UpdateRelationParams) (*common.Relationship, error) {
	var rel common.Relationship
	err := c.send(ctx, http.MethodPut, "/relations/"+url.PathEscape(relationID.String()), params, &rel)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// ListGraphs returns all graphs for the root selector.
func (c *Client) ListGraphs(ctx context.Context) ([]common.Graph, error) {
	var graphs []common.Graph
	if err := c.get(ctx, "/graphs", &graphs); err != nil {
		return nil, err
	}
	return graphs, nil
}

// ListCategories returns the categories of one graph.
func (c *Client) ListCategories(ctx context.Context, graphID common.ID) ([]common.Category, error) {
	var categories []common.Category
	path := "/graphs/" + url.PathEscape(graphID.String()) + "/categories"
	if err := c.get(ctx, path, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListDocuments returns the documents of one graph, optionally filtered to a
// category.
func (c *Client) ListDocuments(ctx context.Context, graphID, categoryID common.ID) ([]common.Document, error) {
	path := "/graphs/" + url.PathEscape(graphID.String()) + "/documents"
	if categoryID != "" {
		path += "?category_id=" + url.QueryEscape(categoryID.String())
	}

	var documents []common.Document
	if err := c.get(ctx, path, &documents); err != nil {
		return nil, err
	}
	return documents, nil
}

// EntityTypes returns the known entity type labels for the editor dropdown.
func (c *Client) EntityTypes(ctx context.Context) ([]string, error) {
	return c.typeList(ctx, "/entity-types")
}

// RelationTypes returns the known relation type labels for the editor
// dropdown.
func (c *Client) RelationTypes(ctx context.Context) ([]string, error) {
	return c.typeList(ctx, "/relation-types")
}

func (c *Client) typeList(ctx context.Context, path string) ([]string, error) {
	result, err, _ := c.typeGroup.Do(path, func() (any, error) {
		var types []string
		if err := c.get(ctx, path, &types); err != nil {
			return nil, err
		}
		return types, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// get issues an idempotent read, retrying transport failures and 5xx
// answers. 4xx answers are final.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var final error
	err := util.RetryErrWithContext(ctx, c.retries, func(ctx context.Context) error {
		err := c.send(ctx, http.MethodGet, path, nil, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			final = err
			return nil
		}
		return err
	})
	if final != nil {
		return final
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{Status: res.StatusCode, Message: readErrorMessage(res.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// readErrorMessage extracts a human-readable reason from an error body. The
// service answers with {"detail": ...} or {"message": ...} depending on the
// endpoint; plain-text bodies are passed through.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var shaped struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &shaped); err == nil {
		switch {
		case shaped.Detail != "":
			return shaped.Detail
		case shaped.Message != "":
			return shaped.Message
		case shaped.Error != "":
			return shaped.Error
		}
	}
	return string(bytes.TrimSpace(raw))
}
