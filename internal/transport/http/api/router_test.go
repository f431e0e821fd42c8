package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"evergreen/internal/decision"
	"evergreen/internal/persona"
	"evergreen/internal/selection"
	"evergreen/internal/service"
	"evergreen/internal/store"
)

type MockDecider struct {
	mock.Mock
}

func (m *MockDecider) Handle(ctx context.Context, body []byte) (service.Response, error) {
	args := m.Called(ctx, body)
	return args.Get(0).(service.Response), args.Error(1)
}

func (m *MockDecider) Select(ctx context.Context) (selection.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(selection.Result), args.Error(1)
}

type MockReader struct {
	mock.Mock
}

func (m *MockReader) Get(ctx context.Context, id string) (store.DecisionRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.DecisionRecord), args.Error(1)
}

func (m *MockReader) ListRecent(ctx context.Context, limit int) ([]store.DecisionRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]store.DecisionRecord), args.Error(1)
}

func newTestServer(t *testing.T, d Decider, r store.Reader, c RecordCache) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{Decider: d, Records: r, Cache: c, Personas: persona.Default()})
	require.NoError(t, err)
	return srv.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestNewServerRequiresDecider(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestPostDecisionStatusCodes(t *testing.T) {
	ok := service.Response{Status: service.StatusOK, DecisionID: "d-1",
		InvestmentDecision: &service.InvestmentDecision{Direction: decision.DirectionYes, Size: 1000, Confidence: 68.75, Summary: "s"}}
	bad := service.Response{Status: service.StatusError, Error: service.ErrMissingData.Error()}
	failed := service.Response{Status: service.StatusError, Error: "agent run failed"}

	tests := []struct {
		name   string
		body   string
		resp   service.Response
		err    error
		status int
	}{
		{"ok", `{"market":{"symbol":"BTC","price":1},"data":{}}`, ok, nil, http.StatusOK},
		{"validation", `{"market":{"symbol":"BTC","price":1},"data":"x"}`, bad, service.ErrMissingData, http.StatusBadRequest},
		{"pipeline", `{"market":{"symbol":"BTC","price":1},"data":{}}`, failed, errors.New("agent run failed"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(MockDecider)
			d.On("Handle", mock.Anything, []byte(tt.body)).Return(tt.resp, tt.err).Once()
			w := do(newTestServer(t, d, nil, nil), http.MethodPost, "/api/decisions", tt.body)
			assert.Equal(t, tt.status, w.Code)

			var got service.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.resp.Status, got.Status)
			assert.Equal(t, tt.resp.Error, got.Error)
			d.AssertExpectations(t)
		})
	}
}

type mapCache map[string]store.DecisionRecord

func (m mapCache) Get(_ context.Context, id string) (store.DecisionRecord, error) {
	if rec, ok := m[id]; ok {
		return rec, nil
	}
	return store.DecisionRecord{}, store.ErrNotFound
}

func TestGetDecisionCacheThenStore(t *testing.T) {
	reader := new(MockReader)
	reader.On("Get", mock.Anything, "stored").Return(store.DecisionRecord{DecisionID: "stored", MarketSymbol: "ETH"}, nil).Once()
	reader.On("Get", mock.Anything, "missing").Return(store.DecisionRecord{}, store.ErrNotFound).Once()
	cache := mapCache{"cached": {DecisionID: "cached", MarketSymbol: "BTC"}}
	h := newTestServer(t, new(MockDecider), reader, cache)

	w := do(h, http.MethodGet, "/api/decisions/cached", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"market_symbol":"BTC"`)

	w = do(h, http.MethodGet, "/api/decisions/stored", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"market_symbol":"ETH"`)

	w = do(h, http.MethodGet, "/api/decisions/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	reader.AssertExpectations(t)
}

func TestListDecisionsClampsLimit(t *testing.T) {
	reader := new(MockReader)
	reader.On("ListRecent", mock.Anything, 200).Return([]store.DecisionRecord{{DecisionID: "a"}}, nil).Once()
	reader.On("ListRecent", mock.Anything, 20).Return([]store.DecisionRecord(nil), nil).Once()
	h := newTestServer(t, new(MockDecider), reader, nil)

	w := do(h, http.MethodGet, "/api/decisions?limit=5000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `1`, countField(t, w.Body.Bytes()))

	w = do(h, http.MethodGet, "/api/decisions?limit=abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"decisions":[]`)
	reader.AssertExpectations(t)

	w = do(newTestServer(t, new(MockDecider), nil, nil), http.MethodGet, "/api/decisions", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func countField(t *testing.T, body []byte) string {
	t.Helper()
	var v struct {
		Count json.RawMessage `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &v))
	return string(v.Count)
}

func TestAgentsListsWeightTable(t *testing.T) {
	w := do(newTestServer(t, new(MockDecider), nil, nil), http.MethodGet, "/api/agents", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Agents []agentView `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Agents, 5)
	weights := map[string]float64{}
	for _, a := range body.Agents {
		weights[a.Name] = a.Weight
	}
	assert.Equal(t, map[string]float64{
		"FundamentalAgent": 0.25, "QuantAgent": 0.30, "SentimentAgent": 0.10, "RiskAgent": 0.25, "StrategistAgent": 0.10,
	}, weights)
}

func TestSelectionEndpoint(t *testing.T) {
	d := new(MockDecider)
	d.On("Select", mock.Anything).Return(selection.Result{Selected: selection.SelectedMarket{MarketID: "m"}}, nil).Once()
	d.On("Select", mock.Anything).Return(selection.Result{}, &service.SelectionError{Err: selection.ErrNoMarkets}).Once()
	h := newTestServer(t, d, nil, nil)

	w := do(h, http.MethodPost, "/api/selection", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"market_id":"m"`)

	w = do(h, http.MethodPost, "/api/selection", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Market selection failed: No suitable markets found")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, new(MockDecider), nil, nil)
	w := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "evergreen_http_requests_total")
}
