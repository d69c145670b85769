package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/maps"
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/repository"
	"github.com/neuraestate/property-matcher/internal/service"
)

type testServer struct {
	router *gin.Engine
	chat   *service.ChatService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	events := repository.NewJSONLEventLog(config.EventsConfig{
		LeadsPath:    filepath.Join(dir, "leads.jsonl"),
		FeedbackPath: filepath.Join(dir, "feedback.jsonl"),
		TurnsPath:    filepath.Join(dir, "turns.jsonl"),
	})
	enricher := maps.NewLocalEnricher(&config.MapsConfig{Modes: []string{"driving"}})

	chat, err := service.NewChatService(
		service.OrchestratorOptions{Enricher: enricher},
		service.NewSessionStore("test context"),
		events,
		service.NewRanker(0.4, 0.45, 0.15),
		nil, nil, nil,
	)
	require.NoError(t, err)
	listings := service.NewListingService(enricher, nil, nil)

	router := gin.New()
	api := router.Group("/api/v1")
	RegisterRoutes(api, Handlers{
		Chat:      NewChatHandler(chat),
		Feedback:  NewFeedbackHandler(chat),
		Listings:  NewListingHandler(listings, 5, 20),
		Embedding: NewEmbeddingHandler(listings, 3),
	})
	return &testServer{router: router, chat: chat}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestChatHandler_TurnAndSession(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message": "Looking for a 2 bed apartment in Dubai Marina under 2.5m",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.True(t, resp.PreferencesComplete)
	assert.Len(t, resp.Replies, 3)
	require.Len(t, resp.Recommendations, 1)
	require.Len(t, resp.Enrichments, 1)
	assert.NotNil(t, resp.Enrichments[0].MapURL)
	assert.Contains(t, resp.Reply, "[Concierge] Unable to reach the language model.")

	w = srv.do(t, http.MethodGet, "/api/v1/chat/"+resp.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session model.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Len(t, session.State.Messages, 5)

	w = srv.do(t, http.MethodPost, "/api/v1/chat/"+resp.SessionID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Len(t, session.State.Messages, 1)
	assert.Empty(t, session.State.Listings)
}

func TestChatHandler_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "missing message", method: http.MethodPost, path: "/api/v1/chat", body: map[string]any{}, want: http.StatusBadRequest},
		{
			name: "unknown persona", method: http.MethodPost, path: "/api/v1/chat",
			body: map[string]any{"message": "hi", "personas": []string{"closer"}}, want: http.StatusBadRequest,
		},
		{name: "unknown session", method: http.MethodGet, path: "/api/v1/chat/nope", want: http.StatusNotFound},
		{name: "reset unknown session", method: http.MethodPost, path: "/api/v1/chat/nope/reset", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestChatHandler_TurnInProgress(t *testing.T) {
	srv := newTestServer(t)
	_, release, err := srv.chat.Sessions().Acquire("busy")
	require.NoError(t, err)
	defer release()

	w := srv.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"session_id": "busy", "message": "hi"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/chat/busy/reset", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFeedbackHandler(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/leads", map[string]any{"name": "Sam", "email": "sam@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp model.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Lead)
	assert.NotNil(t, resp.Lead.Timestamp)

	w = srv.do(t, http.MethodPost, "/api/v1/leads", map[string]any{"name": "Sam"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/feedback", map[string]any{"message": "Great shortlist"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/feedback", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandler_Normalize(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/listings/normalize", map[string]any{
		"payload": map[string]any{"hits": []any{
			map[string]any{"id": 7, "title": "JLT studio", "price": 650000, "price_currency": "AED"},
		}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.NormalizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "AED 650,000", *resp.Cards[0].Price)

	w = srv.do(t, http.MethodPost, "/api/v1/listings/normalize", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandler_Maps(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/maps/enrich", map[string]any{
		"listings": []any{
			map[string]any{"id": "a", "latitude": 25.08, "longitude": 55.14},
			map[string]any{"id": "b"},
		},
		"points_of_interest": []any{map[string]any{"name": "Office", "latitude": 25.2, "longitude": 55.27}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.EnrichResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Enrichments, 2)
	require.Len(t, resp.Enrichments[0].TravelTimes["Office"], 1)
	assert.Equal(t, "haversine", resp.Enrichments[0].TravelTimes["Office"][0].Source)
	assert.NotNil(t, resp.Enrichments[1].Error)

	w = srv.do(t, http.MethodGet, "/api/v1/maps/link?q=Dubai+Marina", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "query=Dubai+Marina")

	w = srv.do(t, http.MethodGet, "/api/v1/maps/link?lat=25.08&lon=55.14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "25.080000%2C55.140000")

	w = srv.do(t, http.MethodGet, "/api/v1/maps/link?lat=95&lon=55", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandler_IndexUnavailable(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/v1/listings/42", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/listings/42/similar", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/listings/42/similar?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/cards/index", map[string]any{
		"cards": []any{map[string]any{"card": map[string]any{"id": "1"}, "embedding": []float32{1, 2, 3}}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/cards/index", map[string]any{
		"cards": []any{map[string]any{"card": map[string]any{"id": "1"}, "embedding": []float32{1}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
