package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/pkg/jwt"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/pkg/ws"
)

func setupWebSocketServer(t *testing.T, origins []string) (*ws.Hub, *gin.Engine, string) {
	t.Helper()

	hub := ws.NewHub(nil)
	handler := NewWebSocketHandler(hub, testSecret, origins, nil)

	router := gin.New()
	router.GET("/ws", handler.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, router, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestWebSocketHandler_PushesToUser(t *testing.T) {
	hub, _, url := setupWebSocketServer(t, nil)

	token, err := jwt.GenerateToken(42, model.TierFree, testSecret, 1)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline(42) }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.SendToUser(42, &ws.Message{Type: "chart_updated", Data: map[string]any{"chart_id": 7}}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chart_updated","data":{"chart_id":7}}`, string(data))

	conn.Close()
	require.Eventually(t, func() bool { return !hub.IsOnline(42) }, time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_RejectsBadToken(t *testing.T) {
	_, router, _ := setupWebSocketServer(t, nil)

	for _, path := range []string{"/ws", "/ws?token=garbage"} {
		w := performRequest(router, "GET", path, nil)
		assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code, path)
	}
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	_, _, url := setupWebSocketServer(t, []string{"https://app.example.com"})

	token, err := jwt.GenerateToken(1, model.TierFree, testSecret, 1)
	require.NoError(t, err)

	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token="+token, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)

	header["Origin"] = []string{"https://app.example.com"}
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, header)
	require.NoError(t, err)
	conn.Close()
}
