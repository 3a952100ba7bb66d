package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Mariodrm17/Practica1/internal/catalog"
	"github.com/Mariodrm17/Practica1/internal/config"
	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/hub"
	"github.com/Mariodrm17/Practica1/internal/inventory"
	"github.com/Mariodrm17/Practica1/internal/messagelog"
	"github.com/Mariodrm17/Practica1/internal/mocks"
	"github.com/Mariodrm17/Practica1/internal/registry"
	"github.com/Mariodrm17/Practica1/internal/repository"
	"github.com/Mariodrm17/Practica1/internal/service"
	"github.com/Mariodrm17/Practica1/internal/testutil"
	"github.com/Mariodrm17/Practica1/pkg/jwt"
	"github.com/Mariodrm17/Practica1/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	*httptest.Server
	tokens  *jwt.Manager
	ledger  *inventory.MemoryLedger
	history messagelog.Log
	hub     *hub.Hub
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

// newTestServer wires the REST and websocket routes over in-memory backends. A nil
// cartService uses the real service.
func newTestServer(t *testing.T, cartService service.CartService) *testServer {
	t.Helper()

	products := []*domain.Product{
		testutil.Jersey("jersey-1", map[string]int{"M": 3, "L": 1}),
		testutil.Ball("ball-1", 5),
	}
	ledger := inventory.NewMemoryLedger()
	require.NoError(t, inventory.SeedProducts(context.Background(), ledger, products))
	if cartService == nil {
		cartService = service.NewCartService(catalog.NewMemoryCatalog(products...), ledger, repository.NewMemoryCartRepository())
	}

	history := messagelog.NewMemoryLog()
	chatHub := hub.NewHub(registry.NewRoomRegistry(), history, hub.Config{HistoryLimit: 50, AppendAttempts: 2, RetryBackoff: time.Millisecond})

	tokens, err := jwt.NewManager("test-secret", "test", time.Hour)
	require.NoError(t, err)
	auth := middleware.NewAuthMiddleware(middleware.NewJWTResolver(tokens))

	r := gin.New()
	NewHandler(cartService, history, chatHub, auth, 50).RegisterRoutes(r)
	NewWSHandler(chatHub, auth, config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       2 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     64,
	}).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		_ = chatHub.Shutdown(context.Background())
		srv.Close()
	})
	return &testServer{Server: srv, tokens: tokens, ledger: ledger, history: history, hub: chatHub}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.tokens.Issue(userID, "user-"+userID, "customer")
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+s.token(t, userID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func cartOf(t *testing.T, env envelope) domain.CartView {
	t.Helper()
	require.True(t, env.Success)
	var view domain.CartView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["clients"])
}

func TestCartRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t, nil)

	status, env := srv.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/cart", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.AuthHeaderKey, "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCartFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	status, env := srv.do(t, http.MethodGet, "/api/v1/cart", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	view := cartOf(t, env)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalCents)

	status, env = srv.do(t, http.MethodPost, "/api/v1/cart/items", "alice", map[string]interface{}{
		"product_id": "jersey-1",
		"variant":    "M",
		"quantity":   2,
	})
	require.Equal(t, http.StatusCreated, status)
	view = cartOf(t, env)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.EqualValues(t, 2*8999, view.TotalCents)
	lineID := view.Items[0].ID

	left, err := srv.ledger.CurrentStock(ctx, "jersey-1", "M")
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	status, env = srv.do(t, http.MethodPost, "/api/v1/cart/items", "alice", map[string]interface{}{
		"product_id": "ball-1",
	})
	require.Equal(t, http.StatusCreated, status)
	view = cartOf(t, env)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.ItemCount)

	status, env = srv.do(t, http.MethodPut, "/api/v1/cart/items/"+lineID, "alice", map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, status)
	view = cartOf(t, env)
	assert.Equal(t, 3, view.Items[0].Quantity)

	status, env = srv.do(t, http.MethodDelete, "/api/v1/cart/items/"+lineID, "alice", nil)
	require.Equal(t, http.StatusOK, status)
	view = cartOf(t, env)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "ball-1", view.Items[0].ProductID)

	left, err = srv.ledger.CurrentStock(ctx, "jersey-1", "M")
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	status, env = srv.do(t, http.MethodDelete, "/api/v1/cart", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, cartOf(t, env).Items)

	left, err = srv.ledger.CurrentStock(ctx, "ball-1", domain.AnyVariant)
	require.NoError(t, err)
	assert.Equal(t, 5, left)
}

func TestCartIsScopedToCaller(t *testing.T) {
	srv := newTestServer(t, nil)

	status, _ := srv.do(t, http.MethodPost, "/api/v1/cart/items", "alice", map[string]interface{}{"product_id": "ball-1"})
	require.Equal(t, http.StatusCreated, status)

	status, env := srv.do(t, http.MethodGet, "/api/v1/cart", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	view := cartOf(t, env)
	assert.Equal(t, "bob", view.UserID)
	assert.Empty(t, view.Items)
}

func TestCartErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{
			name:   "missing product id",
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			body:   map[string]interface{}{"quantity": 1},
			status: http.StatusBadRequest,
		},
		{
			name:   "variant required",
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			body:   map[string]interface{}{"product_id": "jersey-1"},
			status: http.StatusBadRequest,
			code:   string(domain.ErrCodeVariantRequired),
		},
		{
			name:   "unknown variant",
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			body:   map[string]interface{}{"product_id": "jersey-1", "variant": "XXL"},
			status: http.StatusBadRequest,
			code:   string(domain.ErrCodeVariantInvalid),
		},
		{
			name:   "zero quantity",
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			body:   map[string]interface{}{"product_id": "ball-1", "quantity": 0},
			status: http.StatusBadRequest,
			code:   string(domain.ErrCodeInvalidQuantity),
		},
		{
			name:   "beyond stock",
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			body:   map[string]interface{}{"product_id": "jersey-1", "variant": "L", "quantity": 2},
			status: http.StatusConflict,
			code:   string(domain.ErrCodeInsufficientStock),
		},
		{
			name:   "unknown product",
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			body:   map[string]interface{}{"product_id": "nope"},
			status: http.StatusNotFound,
			code:   string(domain.ErrCodeProductUnavailable),
		},
		{
			name:   "update missing line",
			method: http.MethodPut,
			path:   "/api/v1/cart/items/missing",
			body:   map[string]int{"quantity": 1},
			status: http.StatusNotFound,
			code:   string(domain.ErrCodeLineItemNotFound),
		},
		{
			name:   "remove missing line",
			method: http.MethodDelete,
			path:   "/api/v1/cart/items/missing",
			status: http.StatusNotFound,
			code:   string(domain.ErrCodeLineItemNotFound),
		},
	}

	srv := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := srv.do(t, tt.method, tt.path, "alice", tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			if tt.code != "" {
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}

	left, err := srv.ledger.CurrentStock(context.Background(), "jersey-1", "L")
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func TestCartStorageFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	cartService := mocks.NewMockCartService(ctrl)
	srv := newTestServer(t, cartService)

	cartService.EXPECT().
		View(gomock.Any(), "alice").
		Return(nil, domain.Unavailable("load cart", context.DeadlineExceeded))
	cartService.EXPECT().
		Clear(gomock.Any(), "alice").
		Return(nil, context.Canceled)

	status, env := srv.do(t, http.MethodGet, "/api/v1/cart", "alice", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(domain.ErrCodeStorageUnavailable), env.Error.Code)
	assert.True(t, env.Error.Retryable)
	assert.Equal(t, "load cart", env.Error.Message)
	assert.NotContains(t, env.Error.Message, "deadline")

	status, env = srv.do(t, http.MethodDelete, "/api/v1/cart", "alice", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	require.NotNil(t, env.Error)
	assert.NotContains(t, env.Error.Message, "canceled")
}

func TestCartPassesCallerIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	cartService := mocks.NewMockCartService(ctrl)
	srv := newTestServer(t, cartService)

	cartService.EXPECT().
		UpdateQuantity(gomock.Any(), "carol", "line-7", 4).
		Return(&domain.CartView{UserID: "carol", Items: []domain.CartLineView{}}, nil)

	status, env := srv.do(t, http.MethodPut, "/api/v1/cart/items/line-7", "carol", map[string]int{"quantity": 4})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "carol", cartOf(t, env).UserID)
}

func TestChatHistory(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	for _, msg := range []*domain.ChatMessage{
		domain.NewSystemNotice(domain.DefaultRoom, "alice joined the chat"),
		domain.NewUserMessage(domain.DefaultRoom, "alice", "alice", "hola"),
		domain.NewUserMessage(domain.DefaultRoom, "alice", "alice", "¿alguien?"),
		domain.NewUserMessage("otra-sala", "alice", "alice", "elsewhere"),
	} {
		_, err := srv.history.Append(ctx, msg)
		require.NoError(t, err)
	}

	history := func(query string) domain.ChatHistoryResponse {
		t.Helper()
		status, env := srv.do(t, http.MethodGet, "/api/v1/chat/history"+query, "bob", nil)
		require.Equal(t, http.StatusOK, status)
		var out domain.ChatHistoryResponse
		require.NoError(t, json.Unmarshal(env.Data, &out))
		return out
	}

	out := history("")
	assert.Equal(t, domain.DefaultRoom, out.Room)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "hola", out.Messages[0].Body)
	assert.Equal(t, "¿alguien?", out.Messages[1].Body)

	out = history("?limit=1")
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "¿alguien?", out.Messages[0].Body)

	out = history("?include_system=true")
	require.Len(t, out.Messages, 3)
	assert.Equal(t, domain.KindSystem, out.Messages[0].Kind)

	out = history("?room=otra-sala")
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "elsewhere", out.Messages[0].Body)

	status, _ := srv.do(t, http.MethodGet, "/api/v1/chat/history?limit=0", "bob", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = srv.do(t, http.MethodGet, "/api/v1/chat/history?limit=500", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := srv.do(t, http.MethodGet, "/api/v1/chat/history?room="+strings.Repeat("r", domain.MaxRoomLength+1), "bob", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}
