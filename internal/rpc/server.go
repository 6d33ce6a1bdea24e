package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxBodySize bounds HTTP request bodies.
const maxBodySize = 1 << 20

// Server handles HTTP RPC requests.
type Server struct {
	registry *MethodRegistry
	timeout  time.Duration
	admin    map[string]bool
	logger   *zap.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAdmin grants the admin role to the listed client IPs.
func WithAdmin(ips ...string) ServerOption {
	return func(s *Server) {
		for _, ip := range ips {
			s.admin[ip] = true
		}
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new RPC server with every method registered
// against svc.
func NewServer(svc *Services, timeout time.Duration, opts ...ServerOption) *Server {
	server := &Server{
		registry: NewMethodRegistry(),
		timeout:  timeout,
		admin:    make(map[string]bool),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.logger = server.logger.Named("rpc")

	registerAllMethods(server.registry, svc)
	return server
}

// Registry returns the method registry, shared with the websocket server.
func (s *Server) Registry() *MethodRegistry {
	return s.registry
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		s.handleGetRequest(w, r)
	case http.MethodPost:
		s.handlePostRequest(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetRequest processes GET requests with a command query parameter
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("command")
	if method == "" {
		// Default to server_info for GET requests without command
		method = "server_info"
	}

	ctx, cancel := s.newContext(r)
	defer cancel()
	result, rpcErr := s.executeMethod(method, nil, ctx)
	s.writeResponse(w, method, nil, result, rpcErr)
}

// handlePostRequest processes POST requests with a JSON payload
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, RpcErrorInternal("Failed to read request body"))
		return
	}
	defer r.Body.Close()

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeError(w, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeError(w, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "missingCommand", "Missing method field"))
		return
	}

	// Params is an array holding one object
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	ctx, cancel := s.newContext(r)
	defer cancel()
	result, rpcErr := s.executeMethod(request.Method, params, ctx)

	// Echo the request in error responses
	var requestObj interface{}
	if rpcErr != nil {
		reqMap := map[string]interface{}{}
		if params != nil {
			_ = json.Unmarshal(params, &reqMap)
		}
		reqMap["command"] = request.Method
		requestObj = reqMap
	}
	s.writeResponse(w, request.Method, requestObj, result, rpcErr)
}

func (s *Server) newContext(r *http.Request) (*RpcContext, context.CancelFunc) {
	parent := r.Context()
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		parent, cancel = context.WithTimeout(parent, s.timeout)
	}
	ip := remoteIP(r.RemoteAddr)
	role := RoleGuest
	if s.admin[ip] {
		role = RoleAdmin
	}
	return &RpcContext{Context: parent, Role: role, ClientIP: ip}, cancel
}

// executeMethod executes an RPC method with the given parameters
func (s *Server) executeMethod(method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	return dispatch(s.registry, s.logger, method, params, ctx)
}

func dispatch(registry *MethodRegistry, logger *zap.Logger, method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	handler, exists := registry.Get(method)
	if !exists {
		return nil, RpcErrorMethodNotFound(method)
	}
	if ctx.Role < handler.RequiredRole() {
		return nil, NewRpcError(RpcCOMMAND_UNTRUSTED, "commandUntrusted", "commandUntrusted",
			"Method '"+method+"' requires higher privileges")
	}

	start := time.Now()
	result, rpcErr := handler.Handle(ctx, params)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("client", ctx.ClientIP),
		zap.Duration("elapsed", time.Since(start)),
	}
	if rpcErr != nil {
		logger.Debug("rpc call failed", append(fields, zap.String("error", rpcErr.ErrorString), zap.String("message", rpcErr.Message))...)
	} else {
		logger.Debug("rpc call", fields...)
	}
	return result, rpcErr
}

// writeResponse writes a response:
// - result.status = "success" or "error"
// - error, error_code, error_message sit inside result
func (s *Server) writeResponse(w http.ResponseWriter, method string, request interface{}, result interface{}, rpcErr *RpcError) {
	response := map[string]interface{}{"result": buildResult(request, result, rpcErr)}

	responseData, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.String("method", method), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(responseData)
}

func buildResult(request interface{}, result interface{}, rpcErr *RpcError) map[string]interface{} {
	if rpcErr != nil {
		resultObj := map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if rpcErr.Result != "" {
			resultObj["engine_result"] = rpcErr.Result
		}
		if request != nil {
			resultObj["request"] = request
		}
		return resultObj
	}
	// Map results gain a status; anything else is wrapped
	if resultMap, ok := result.(map[string]interface{}); ok {
		resultMap["status"] = "success"
		return resultMap
	}
	return map[string]interface{}{
		"status": "success",
		"data":   result,
	}
}

// writeError writes an error response for a request that never reached
// a method.
func (s *Server) writeError(w http.ResponseWriter, rpcErr *RpcError) {
	s.writeResponse(w, "", nil, nil, rpcErr)
}

// remoteIP strips the port from a RemoteAddr.
func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSpace(addr)
}

// NewHandler mounts the RPC server, the websocket server and a health
// check on one mux.
func NewHandler(rpcServer *Server, wsServer *WebSocketServer, wsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", rpcServer)
	mux.Handle("/rpc", rpcServer)
	if wsServer != nil {
		mux.Handle(wsPath, wsServer)
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"marbled"}`))
	})
	return mux
}
