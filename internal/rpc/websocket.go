package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 512 * 1024
	wsSendBuffer     = 256
)

// WebSocketServer handles websocket connections. Commands share the
// method registry of the HTTP server; subscribe and unsubscribe manage
// the event streams.
type WebSocketServer struct {
	upgrader            websocket.Upgrader
	subscriptionManager *SubscriptionManager
	methodRegistry      *MethodRegistry
	admin               map[string]bool
	logger              *zap.Logger

	connections      map[string]*WebSocketConnection
	connectionsMutex sync.RWMutex
	nextID           atomic.Uint64
	timeout          time.Duration
}

// WebSocketConnection represents a single WebSocket connection
type WebSocketConnection struct {
	*Connection
	conn      *websocket.Conn
	clientIP  string
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewWebSocketServer creates a websocket server over registry and manager.
func NewWebSocketServer(registry *MethodRegistry, manager *SubscriptionManager, timeout time.Duration, logger *zap.Logger, admin ...string) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ws := &WebSocketServer{
		upgrader: websocket.Upgrader{
			// Browser clients connect from arbitrary origins
			CheckOrigin:  func(r *http.Request) bool { return true },
			Subprotocols: []string{"marble"},
		},
		subscriptionManager: manager,
		methodRegistry:      registry,
		admin:               make(map[string]bool),
		logger:              logger.Named("ws"),
		connections:         make(map[string]*WebSocketConnection),
		timeout:             timeout,
	}
	for _, ip := range admin {
		ws.admin[ip] = true
	}
	return ws
}

// ServeHTTP handles WebSocket upgrade requests
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	// The connection outlives the upgrade request
	ctx, cancel := context.WithCancel(context.Background())
	wsConn := &WebSocketConnection{
		Connection: NewConnection("conn_"+strconv.FormatUint(ws.nextID.Add(1), 10), wsSendBuffer),
		conn:       conn,
		clientIP:   remoteIP(r.RemoteAddr),
		ctx:        ctx,
		cancel:     cancel,
	}

	ws.connectionsMutex.Lock()
	ws.connections[wsConn.ID] = wsConn
	ws.connectionsMutex.Unlock()
	ws.subscriptionManager.AddConnection(wsConn.Connection)

	ws.logger.Debug("websocket connection opened", zap.String("id", wsConn.ID), zap.String("client", wsConn.clientIP))
	go ws.handleConnection(wsConn)
	go ws.handleSend(wsConn)
}

// handleConnection reads commands until the peer goes away.
func (ws *WebSocketServer) handleConnection(wsConn *WebSocketConnection) {
	defer ws.closeConnection(wsConn)

	wsConn.conn.SetReadLimit(wsMaxMessageSize)
	_ = wsConn.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	wsConn.conn.SetPongHandler(func(string) error {
		return wsConn.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := wsConn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Debug("websocket read failed", zap.String("id", wsConn.ID), zap.Error(err))
			}
			return
		}
		ws.handleMessage(wsConn, message)
	}
}

// handleSend writes queued messages and keeps the connection alive.
func (ws *WebSocketServer) handleSend(wsConn *WebSocketConnection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		ws.closeConnection(wsConn)
	}()

	for {
		select {
		case <-wsConn.ctx.Done():
			return
		case message := <-wsConn.SendChannel:
			_ = wsConn.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := wsConn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				ws.logger.Debug("websocket send failed", zap.String("id", wsConn.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = wsConn.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := wsConn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes a single command. Parameters sit at the top
// level of the command object.
func (ws *WebSocketServer) handleMessage(wsConn *WebSocketConnection, message []byte) {
	var cmdMap map[string]json.RawMessage
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		ws.sendError(wsConn, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "jsonInvalid", "Invalid JSON: "+err.Error()), nil)
		return
	}

	var cmd WebSocketCommand
	if raw, ok := cmdMap["id"]; ok {
		_ = json.Unmarshal(raw, &cmd.ID)
	}
	if raw, ok := cmdMap["command"]; !ok || json.Unmarshal(raw, &cmd.Command) != nil || cmd.Command == "" {
		ws.sendError(wsConn, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "missingCommand", "Missing command field"), cmd.ID)
		return
	}
	delete(cmdMap, "command")
	delete(cmdMap, "id")
	if len(cmdMap) > 0 {
		cmd.Params, _ = json.Marshal(cmdMap)
	}

	switch cmd.Command {
	case "subscribe":
		ws.handleSubscribe(wsConn, cmd)
	case "unsubscribe":
		ws.handleUnsubscribe(wsConn, cmd)
	default:
		ws.handleRPCMethod(wsConn, cmd)
	}
}

func (ws *WebSocketServer) handleSubscribe(wsConn *WebSocketConnection, cmd WebSocketCommand) {
	var request SubscriptionRequest
	if err := parseParams(cmd.Params, &request); err != nil {
		ws.sendError(wsConn, err, cmd.ID)
		return
	}
	if err := ws.subscriptionManager.HandleSubscribe(wsConn.Connection, request); err != nil {
		ws.sendError(wsConn, err, cmd.ID)
		return
	}
	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     cmd.ID,
		Status: "success",
		Result: map[string]interface{}{"subscribed": request.Streams},
	})
}

func (ws *WebSocketServer) handleUnsubscribe(wsConn *WebSocketConnection, cmd WebSocketCommand) {
	var request SubscriptionRequest
	if err := parseParams(cmd.Params, &request); err != nil {
		ws.sendError(wsConn, err, cmd.ID)
		return
	}
	if err := ws.subscriptionManager.HandleUnsubscribe(wsConn.Connection, request); err != nil {
		ws.sendError(wsConn, err, cmd.ID)
		return
	}
	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     cmd.ID,
		Status: "success",
		Result: map[string]interface{}{"unsubscribed": request.Streams},
	})
}

// handleRPCMethod runs a regular method over the websocket.
func (ws *WebSocketServer) handleRPCMethod(wsConn *WebSocketConnection, cmd WebSocketCommand) {
	ctx := wsConn.ctx
	if ws.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ws.timeout)
		defer cancel()
	}
	role := RoleGuest
	if ws.admin[wsConn.clientIP] {
		role = RoleAdmin
	}
	rpcCtx := &RpcContext{Context: ctx, Role: role, ClientIP: wsConn.clientIP}

	result, rpcErr := dispatch(ws.methodRegistry, ws.logger, cmd.Command, cmd.Params, rpcCtx)
	if rpcErr != nil {
		ws.sendError(wsConn, rpcErr, cmd.ID)
		return
	}
	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     cmd.ID,
		Status: "success",
		Result: result,
	})
}

func (ws *WebSocketServer) sendResponse(wsConn *WebSocketConnection, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		ws.logger.Error("failed to marshal websocket response", zap.Error(err))
		return
	}
	ws.enqueue(wsConn, data)
}

// sendError sends an error response with flat error fields.
func (ws *WebSocketServer) sendError(wsConn *WebSocketConnection, rpcErr *RpcError, id interface{}) {
	response := map[string]interface{}{
		"type":          "response",
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if rpcErr.Result != "" {
		response["engine_result"] = rpcErr.Result
	}
	if id != nil {
		response["id"] = id
	}
	data, err := json.Marshal(response)
	if err != nil {
		ws.logger.Error("failed to marshal websocket error", zap.Error(err))
		return
	}
	ws.enqueue(wsConn, data)
}

func (ws *WebSocketServer) enqueue(wsConn *WebSocketConnection, data []byte) {
	select {
	case wsConn.SendChannel <- data:
	case <-wsConn.ctx.Done():
	default:
		ws.logger.Warn("websocket send channel full, closing connection", zap.String("id", wsConn.ID))
		ws.closeConnection(wsConn)
	}
}

// closeConnection tears a connection down once.
func (ws *WebSocketServer) closeConnection(wsConn *WebSocketConnection) {
	wsConn.closeOnce.Do(func() {
		wsConn.cancel()
		close(wsConn.CloseChannel)

		ws.connectionsMutex.Lock()
		delete(ws.connections, wsConn.ID)
		ws.connectionsMutex.Unlock()
		ws.subscriptionManager.RemoveConnection(wsConn.ID)

		_ = wsConn.conn.Close()
		ws.logger.Debug("websocket connection closed", zap.String("id", wsConn.ID))
	})
}

// ConnectionCount returns the number of open websocket connections.
func (ws *WebSocketServer) ConnectionCount() int {
	ws.connectionsMutex.RLock()
	defer ws.connectionsMutex.RUnlock()
	return len(ws.connections)
}

// Close drops every connection.
func (ws *WebSocketServer) Close() {
	ws.connectionsMutex.RLock()
	conns := make([]*WebSocketConnection, 0, len(ws.connections))
	for _, c := range ws.connections {
		conns = append(conns, c)
	}
	ws.connectionsMutex.RUnlock()
	for _, c := range conns {
		ws.closeConnection(c)
	}
}
