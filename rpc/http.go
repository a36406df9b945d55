package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"foodcourt/core/events"
	"foodcourt/core/journal"
	"foodcourt/core/types"
	"foodcourt/native/participants"
	"foodcourt/observability/metrics"
	fcotel "foodcourt/observability/otel"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	requestIDHeader = "X-Request-Id"
)

// Backend is the ledger surface served over JSON-RPC.
type Backend interface {
	participants.Reader
	Submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Nonce(addr [20]byte) (uint64, error)
	Height() uint64
	Root() common.Hash
	ChainID() uint64
	Owner() [20]byte
	Profile() participants.Profile
}

// EventLog answers participants_listEvents.
type EventLog interface {
	List(fromHeight uint64, limit int, typeFilter string) ([]journal.Entry, error)
}

// EventStream feeds the websocket endpoint.
type EventStream interface {
	Subscribe(ctx context.Context, cursor string) (<-chan events.Record, func(), []events.Record)
}

// ServerConfig tunes the HTTP listener. Zero timeouts disable the
// corresponding limit.
type ServerConfig struct {
	RequestsPerSecond float64
	Burst             int

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

type Server struct {
	backend Backend
	events  EventLog
	stream  EventStream
	cfg     ServerConfig
	logger  *slog.Logger
	limiter *rateLimiter
	metrics *metrics.RPCMetrics
	subs    *metrics.ParticipantsMetrics

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer wires the JSON-RPC handlers. log and stream may be nil, which
// disables participants_listEvents and /ws/events respectively.
func NewServer(backend Backend, log EventLog, stream EventStream, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		backend: backend,
		events:  log,
		stream:  stream,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "rpc")),
		limiter: newRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		metrics: metrics.RPC(),
		subs:    metrics.Participants(),
	}
}

// Handler returns the chi router serving every endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.Method(http.MethodPost, "/", otelhttp.NewHandler(http.HandlerFunc(s.handle), "rpc"))
	return r
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()

	s.logger.Info("starting JSON-RPC server", slog.String("addr", listener.Addr().String()))
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server started by Serve.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.limiter.allow(clientID(r)) {
		s.metrics.IncThrottle()
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	ctx, span := fcotel.Tracer().Start(r.Context(), "rpc."+req.Method,
		trace.WithAttributes(attribute.String("rpc.method", req.Method)))
	defer span.End()

	result, rpcErr, status := s.dispatch(ctx, req)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
		span.SetAttributes(attribute.Int("rpc.error_code", code))
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	} else {
		writeResult(w, req.ID, result)
	}
	s.metrics.Observe(req.Method, code, time.Since(start))
	s.logger.Debug("rpc request",
		slog.String("requestId", requestIDFrom(r.Context())),
		slog.String("method", req.Method),
		slog.Int("code", code),
		slog.Duration("duration", time.Since(start)))
}

func (s *Server) dispatch(ctx context.Context, req *RPCRequest) (interface{}, *RPCError, int) {
	switch req.Method {
	case "participants_sendTransaction":
		return s.handleSendTransaction(ctx, req)
	case "participants_getCustomer":
		return s.handleGetCustomer(req)
	case "participants_getStore":
		return s.handleGetStore(req)
	case "participants_storeExists":
		return s.handleStoreExists(req)
	case "participants_getUserTier":
		return s.handleGetUserTier(req)
	case "participants_getNonce":
		return s.handleGetNonce(req)
	case "participants_info":
		return s.handleInfo(req)
	case "participants_listEvents":
		return s.handleListEvents(req)
	default:
		return nil, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %s", req.Method)}, http.StatusNotFound
	}
}
