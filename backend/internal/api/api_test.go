package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/metrics"
	"kgraph-atlas/backend/internal/workspace"
	apperrors "kgraph-atlas/backend/pkg/errors"
)

type memoryStore struct {
	mu     sync.Mutex
	graphs map[string]*graph.ConversationGraph
	fail   bool
	delay  time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{graphs: map[string]*graph.ConversationGraph{
		"c1": {
			ConversationID: "c1",
			Entities: []graph.Entity{
				{ID: 1, CanonicalName: "A", TypeLabel: "Person"},
				{ID: 2, CanonicalName: "B", TypeLabel: "Person"},
				{ID: 3, CanonicalName: "C", TypeLabel: "Org"},
				{ID: 4, CanonicalName: "D"},
			},
			Relations: []graph.Relation{
				{ID: 10, FromEntityID: 1, ToEntityID: 2, RelationType: "likes", Confidence: 0.7},
				{ID: 11, FromEntityID: 3, ToEntityID: 4, RelationType: "owns", Confidence: 0.9},
			},
		},
		"c2": {
			ConversationID: "c2",
			Entities:       []graph.Entity{{ID: 20, CanonicalName: "Solo"}},
		},
	}}
}

func (m *memoryStore) FetchConversationGraph(ctx context.Context, id string) (*graph.ConversationGraph, error) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, apperrors.NewFetchFailed(id, errors.New("neo4j unavailable"))
	}
	cg, ok := m.graphs[id]
	if !ok {
		return &graph.ConversationGraph{ConversationID: id}, nil
	}
	clone := *cg
	clone.Entities = append([]graph.Entity(nil), cg.Entities...)
	clone.Relations = append([]graph.Relation(nil), cg.Relations...)
	return &clone, nil
}

func (m *memoryStore) UpdateEntity(_ context.Context, id int64, u graph.EntityUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cg := range m.graphs {
		for i := range cg.Entities {
			if cg.Entities[i].ID == id {
				if u.CanonicalName != nil {
					cg.Entities[i].CanonicalName = *u.CanonicalName
				}
				return nil
			}
		}
	}
	return apperrors.NewRecordNotFound("entity", id)
}

func (m *memoryStore) DeleteEntity(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cg := range m.graphs {
		for i := range cg.Entities {
			if cg.Entities[i].ID == id {
				cg.Entities = append(cg.Entities[:i], cg.Entities[i+1:]...)
				return nil
			}
		}
	}
	return apperrors.NewRecordNotFound("entity", id)
}

func (m *memoryStore) UpdateRelation(_ context.Context, id int64, u graph.RelationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cg := range m.graphs {
		for i := range cg.Relations {
			if cg.Relations[i].ID == id {
				if u.Confidence != nil {
					cg.Relations[i].Confidence = *u.Confidence
				}
				return nil
			}
		}
	}
	return apperrors.NewRecordNotFound("relation", id)
}

func (m *memoryStore) DeleteRelation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cg := range m.graphs {
		for i := range cg.Relations {
			if cg.Relations[i].ID == id {
				cg.Relations = append(cg.Relations[:i], cg.Relations[i+1:]...)
				return nil
			}
		}
	}
	return apperrors.NewRecordNotFound("relation", id)
}

func setupRouter(t *testing.T) (*gin.Engine, *memoryStore, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()
	m := metrics.NewCollector("test")
	reg := NewRegistry(time.Minute, m)
	router := NewRouter(Deps{
		Source:         store,
		Editor:         store,
		Metrics:        m,
		Registry:       reg,
		DefaultMode:    layout.ModeRing,
		RequestTimeout: time.Second,
	})
	return router, store, reg
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) viewResponse {
	t.Helper()
	var resp viewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func createView(t *testing.T, router *gin.Engine) viewResponse {
	t.Helper()
	w := do(t, router, "POST", "/api/views", gin.H{"conversation_id": "c1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func findNode(p workspace.Payload, id int64) workspace.NodeRender {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n
		}
	}
	return workspace.NodeRender{}
}

func findEdge(p workspace.Payload, id int64) workspace.EdgeRender {
	for _, e := range p.Edges {
		if e.ID == id {
			return e
		}
	}
	return workspace.EdgeRender{}
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := setupRouter(t)
	w := do(t, router, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestCreateView(t *testing.T) {
	router, _, reg := setupRouter(t)
	resp := createView(t, router)

	assert.NotEmpty(t, resp.ViewID)
	assert.Equal(t, "c1", resp.Payload.ConversationID)
	assert.Len(t, resp.Payload.Nodes, 4)
	assert.Len(t, resp.Payload.Edges, 2)
	assert.Equal(t, 1, reg.Len())
}

func TestCreateView_InvalidRequest(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := do(t, router, "POST", "/api/views", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/views", gin.H{"conversation_id": "c1", "layout_mode": "force"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateView_FetchFailure(t *testing.T) {
	router, store, reg := setupRouter(t)
	store.fail = true

	w := do(t, router, "POST", "/api/views", gin.H{"conversation_id": "c1"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 0, reg.Len())
}

func TestHoverAndHighlight(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)
	base := "/api/views/" + view.ViewID

	resp := decode(t, do(t, router, "POST", base+"/hover", gin.H{"node_id": 1}))
	assert.Equal(t, "node focused", findNode(resp.Payload, 1).StyleClass)
	assert.Equal(t, "node dimmed", findNode(resp.Payload, 3).StyleClass)
	assert.Equal(t, "likes", findEdge(resp.Payload, 10).Label)
	assert.Equal(t, "", findEdge(resp.Payload, 11).Label)

	do(t, router, "POST", base+"/hover", gin.H{"node_id": nil})
	resp = decode(t, do(t, router, "POST", base+"/highlight", gin.H{"relation_type": "owns"}))
	assert.Equal(t, "edge highlight", findEdge(resp.Payload, 11).StyleClass)
	assert.Equal(t, "edge dimmed", findEdge(resp.Payload, 10).StyleClass)
	assert.Equal(t, "node", findNode(resp.Payload, 1).StyleClass)
}

func TestSelectAndViewport(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)
	base := "/api/views/" + view.ViewID

	resp := decode(t, do(t, router, "POST", base+"/select", gin.H{"node_id": 2}))
	require.NotNil(t, resp.State.PinnedNodeID)
	assert.Equal(t, int64(2), *resp.State.PinnedNodeID)

	w := do(t, router, "GET", base+"/viewport?mode=center&zoom=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var vp struct {
		Viewport layout.Viewport `json:"viewport"`
		Found    bool            `json:"found"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vp))
	assert.True(t, vp.Found)
	assert.Equal(t, 2.0, vp.Viewport.Zoom)
	assert.InDelta(t, findNode(resp.Payload, 2).X, vp.Viewport.CenterX, 1e-9)

	w = do(t, router, "GET", base+"/viewport?mode=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDragRefreshReset(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)
	base := "/api/views/" + view.ViewID
	original := findNode(view.Payload, 2)

	do(t, router, "POST", base+"/positions", gin.H{"node_id": 2, "x": 70, "y": 70})
	resp := decode(t, do(t, router, "POST", base+"/refresh", nil))
	b := findNode(resp.Payload, 2)
	assert.Equal(t, 70.0, b.X)
	assert.Equal(t, 70.0, b.Y)

	resp = decode(t, do(t, router, "POST", base+"/reset", nil))
	b = findNode(resp.Payload, 2)
	assert.InDelta(t, original.X, b.X, 1e-9)
	assert.InDelta(t, original.Y, b.Y, 1e-9)
	assert.Equal(t, uint64(1), resp.Payload.LayoutEpoch)
}

func TestPositionsRequireCoordinates(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)

	w := do(t, router, "POST", "/api/views/"+view.ViewID+"/positions", gin.H{"node_id": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFilterAndLayout(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)
	base := "/api/views/" + view.ViewID

	resp := decode(t, do(t, router, "POST", base+"/filter", gin.H{"kind": "type", "text": "person"}))
	assert.Len(t, resp.Payload.Nodes, 2)
	assert.Len(t, resp.Payload.Edges, 1)

	w := do(t, router, "POST", base+"/filter", gin.H{"kind": "colour", "text": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp = decode(t, do(t, router, "POST", base+"/layout", gin.H{"mode": "tree"}))
	assert.Equal(t, layout.ModeTree, resp.Payload.LayoutMode)

	w = do(t, router, "POST", base+"/layout", gin.H{"mode": "spiral"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwitchConversation(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)
	base := "/api/views/" + view.ViewID
	do(t, router, "POST", base+"/highlight", gin.H{"relation_type": "likes"})

	resp := decode(t, do(t, router, "POST", base+"/conversation", gin.H{"conversation_id": "c2"}))
	assert.Equal(t, "c2", resp.Payload.ConversationID)
	require.Len(t, resp.Payload.Nodes, 1)
	assert.Equal(t, int64(20), resp.Payload.Nodes[0].ID)
	assert.Equal(t, "likes", resp.State.HighlightRelationType)
}

func TestPositionsExportImport(t *testing.T) {
	router, _, _ := setupRouter(t)
	first := createView(t, router)
	do(t, router, "POST", "/api/views/"+first.ViewID+"/positions", gin.H{"node_id": 1, "x": 11, "y": 22})

	w := do(t, router, "GET", "/api/views/"+first.ViewID+"/positions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.Bytes()

	second := createView(t, router)
	req, _ := http.NewRequest("PUT", "/api/views/"+second.ViewID+"/positions", bytes.NewReader(exported))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	a := findNode(decode(t, rec).Payload, 1)
	assert.Equal(t, 11.0, a.X)
	assert.Equal(t, 22.0, a.Y)

	req, _ = http.NewRequest("PUT", "/api/views/"+second.ViewID+"/positions", bytes.NewReader([]byte("garbage")))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportSVG(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)

	w := do(t, router, "GET", "/api/views/"+view.ViewID+"/export.svg", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `id="node-1"`)
}

func TestEdits(t *testing.T) {
	router, _, _ := setupRouter(t)
	view := createView(t, router)
	base := "/api/views/" + view.ViewID

	resp := decode(t, do(t, router, "PATCH", base+"/nodes/1", gin.H{"canonical_name": "Alice"}))
	assert.Equal(t, "Alice", findNode(resp.Payload, 1).Label)

	w := do(t, router, "PATCH", base+"/nodes/1", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "PATCH", base+"/edges/10", gin.H{"confidence": 1.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp = decode(t, do(t, router, "PATCH", base+"/edges/10", gin.H{"confidence": 0.1}))
	assert.Equal(t, 0.1, findEdge(resp.Payload, 10).Confidence)

	resp = decode(t, do(t, router, "DELETE", base+"/edges/11", nil))
	assert.Len(t, resp.Payload.Edges, 1)

	resp = decode(t, do(t, router, "DELETE", base+"/nodes/4", nil))
	assert.Len(t, resp.Payload.Nodes, 3)

	w = do(t, router, "DELETE", base+"/nodes/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "DELETE", base+"/nodes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEdits_HiddenRecords(t *testing.T) {
	router, store, _ := setupRouter(t)
	view := createView(t, router)
	base := "/api/views/" + view.ViewID

	// nodes 3 and 4 and the "owns" edge between them drop out of the view
	decode(t, do(t, router, "POST", base+"/filter", gin.H{"kind": "type", "text": "person"}))

	w := do(t, router, "PATCH", base+"/nodes/3", gin.H{"canonical_name": "Hidden"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, router, "DELETE", base+"/edges/11", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	store.mu.Lock()
	assert.Equal(t, "C", store.graphs["c1"].Entities[2].CanonicalName)
	assert.Len(t, store.graphs["c1"].Relations, 2)
	store.mu.Unlock()

	resp := decode(t, do(t, router, "DELETE", base+"/edges/10", nil))
	assert.Empty(t, resp.Payload.Edges)
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemoryStore()
	router := NewRouter(Deps{
		Source:         store,
		Editor:         store,
		Registry:       NewRegistry(time.Minute, nil),
		DefaultMode:    layout.ModeRing,
		RequestTimeout: 20 * time.Millisecond,
	})
	view := createView(t, router)

	store.mu.Lock()
	store.delay = time.Second
	store.mu.Unlock()

	w := do(t, router, "GET", "/api/conversations/c1/graph", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "context timeout: fetch conversation graph")

	w = do(t, router, "POST", "/api/views/"+view.ViewID+"/refresh", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "context timeout: refresh")

	// the last good snapshot survives
	store.mu.Lock()
	store.delay = 0
	store.mu.Unlock()
	resp := decode(t, do(t, router, "GET", "/api/views/"+view.ViewID, nil))
	assert.Len(t, resp.Payload.Nodes, 4)
}

func TestCloseView(t *testing.T) {
	router, _, reg := setupRouter(t)
	view := createView(t, router)

	w := do(t, router, "DELETE", "/api/views/"+view.ViewID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, reg.Len())

	w = do(t, router, "GET", "/api/views/"+view.ViewID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationGraph(t *testing.T) {
	router, _, _ := setupRouter(t)
	w := do(t, router, "GET", "/api/conversations/c1/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cg graph.ConversationGraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cg))
	assert.Len(t, cg.Entities, 4)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := setupRouter(t)
	createView(t, router)

	w := do(t, router, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_graph_refreshes_total{outcome="applied"} 1`)
	assert.Contains(t, w.Body.String(), "test_active_views 1")
}

func TestRegistrySweep(t *testing.T) {
	reg := NewRegistry(time.Minute, nil)
	now := time.Now()
	reg.now = func() time.Time { return now }

	fresh := reg.open(workspace.New("c1", workspace.Options{}))
	stale := reg.open(workspace.New("c2", workspace.Options{}))
	stale.touch(now.Add(-2 * time.Minute))

	assert.Equal(t, 1, reg.Sweep())
	_, err := reg.get(fresh.id)
	assert.NoError(t, err)
	_, err = reg.get(stale.id)
	var missing *apperrors.ErrViewNotFound
	assert.ErrorAs(t, err, &missing)
}
