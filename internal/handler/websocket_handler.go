// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gcu-service/internal/events"
	"gcu-service/internal/model"
	"gcu-service/internal/service"
	"gcu-service/internal/utils"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// defaultSubscriptions is the stream a client gets without a types query
var defaultSubscriptions = []model.EventType{
	model.EventTelemetry,
	model.EventDeviceConnected,
	model.EventDeviceDisconnected,
}

// WebSocketHandler streams GCU events to browser clients
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	connections *ConnectionManager
	gcuService  *service.GCUService
	bus         *events.EventBus
	logger      *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	gcuService *service.GCUService,
	bus *events.EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		connections: NewConnectionManager(),
		gcuService:  gcuService,
		bus:         bus,
		logger:      utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/ws/telemetry", h.HandleTelemetryConnection)
	router.GET("/ws/stats", h.GetStats)
}

// Run forwards bus events to subscribed clients until ctx is done
func (h *WebSocketHandler) Run(ctx context.Context) {
	ch, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer h.connections.CloseAll()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(&WebSocketMessage{
				Type:      "event",
				Data:      event,
				Timestamp: time.Now(),
			})
			if err != nil {
				h.logger.Error("Failed to encode event", zap.Error(err))
				continue
			}
			h.connections.Broadcast(event.Type, payload)
		}
	}
}

// HandleTelemetryConnection upgrades to a WebSocket event stream
// @Summary Live event stream
// @Description WebSocket stream of telemetry and device events. The types query selects event types.
// @Tags WebSocket
// @Param types query string false "Comma separated event types" default(TELEMETRY,DEVICE_CONNECTED,DEVICE_DISCONNECTED)
// @Router /ws/telemetry [get]
func (h *WebSocketHandler) HandleTelemetryConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}
	for _, t := range parseEventTypes(c.Query("types")) {
		client.Subscribe(t)
	}

	h.connections.Register(client)
	h.logger.Info("Telemetry WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      "status",
		Data:      h.gcuService.Status(),
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// GetStats returns WebSocket connection statistics
// @Summary WebSocket statistics
// @Tags WebSocket
// @Produce json
// @Success 200 {object} utils.APIResponse{data=ConnectionStats} "Statistics retrieved"
// @Router /ws/stats [get]
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "WebSocket statistics retrieved", h.connections.GetStats())
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
	}()

	client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe", "unsubscribe":
		data, _ := message.Data.(map[string]interface{})
		eventType, _ := data["event_type"].(string)
		if eventType == "" {
			h.sendError(client, "event_type is required")
			return
		}
		if message.Type == "subscribe" {
			client.Subscribe(model.EventType(eventType))
		} else {
			client.Unsubscribe(model.EventType(eventType))
		}
		h.sendMessage(client, &WebSocketMessage{
			Type:      message.Type + "d",
			Data:      map[string]interface{}{"event_type": eventType},
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	case "status":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "status",
			Data:      h.gcuService.Status(),
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.sendError(client, "unknown message type: "+message.Type)
	}
}

// sendMessage queues a message for one client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to encode WebSocket message", zap.Error(err))
		return
	}

	if !h.connections.Send(client, payload) {
		h.logger.Warn("WebSocket message dropped", zap.String("client_id", client.ID))
	}
}

func (h *WebSocketHandler) sendError(client *Client, message string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      "error",
		Data:      map[string]interface{}{"message": message},
		Timestamp: time.Now(),
	})
}

func parseEventTypes(query string) []model.EventType {
	if query == "" {
		return defaultSubscriptions
	}
	var types []model.EventType
	for _, t := range strings.Split(query, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, model.EventType(strings.ToUpper(t)))
		}
	}
	return types
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}
}
