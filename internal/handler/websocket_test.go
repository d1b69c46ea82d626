package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gcu-service/internal/events"
	"gcu-service/internal/model"
)

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestWebSocketHandler_StreamsSubscribedEvents(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewEventBus(zap.NewNop())
	go bus.Start(ctx)

	ws := NewWebSocketHandler(s.svc, bus, nil, zap.NewNop())
	go ws.Run(ctx)

	router := gin.New()
	ws.RegisterRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/telemetry?types=telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg wsEnvelope
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)

	// The forwarder subscribes asynchronously, so keep publishing until one arrives
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(model.NewEvent(model.EventOperationCompleted, "test", nil))
				bus.Publish(model.NewEvent(model.EventTelemetry, "test", model.JSONObject{"pressure": 1200}))
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "event", msg.Type)
	var event model.Event
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, model.EventTelemetry, event.Type)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "ping", RequestID: "r1"}))
	for {
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "pong" {
			break
		}
		assert.Equal(t, "event", msg.Type)
	}

	stats := ws.connections.GetStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.BySubscription[model.EventTelemetry])
}
