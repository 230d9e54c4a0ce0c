package interfaces

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/graph"
	"github.com/yair/encore/pkg/logging"
	"github.com/yair/encore/pkg/metrics"
)

const (
	transportHTTP      = "http"
	transportWebSocket = "websocket"

	maxBodyBytes = 1 << 20
)

// QueryExecutor is satisfied by *graph.Executor.
type QueryExecutor interface {
	Execute(ctx context.Context, req graph.Request) *graph.Response
}

type HandlerConfig struct {
	Executor QueryExecutor
	// QueryLog is optional; when set every executed operation is recorded.
	QueryLog        domain.QueryLog
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
	EnableWebSocket bool
}

type GraphQLHandler struct {
	executor  QueryExecutor
	queryLog  domain.QueryLog
	metrics   *metrics.Metrics
	logger    *zap.Logger
	websocket bool
}

func NewGraphQLHandler(cfg HandlerConfig) *GraphQLHandler {
	return &GraphQLHandler{
		executor:  cfg.Executor,
		queryLog:  cfg.QueryLog,
		metrics:   cfg.Metrics,
		logger:    logging.OrNop(cfg.Logger),
		websocket: cfg.EnableWebSocket,
	}
}

func (h *GraphQLHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/graphql", h.ServeGraphQL).Methods("GET", "POST")
	router.HandleFunc("/health", h.Health).Methods("GET")
	if h.metrics != nil {
		router.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}
}

func (h *GraphQLHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeGraphQL executes a query sent as a GET query string or a POST body.
// A GET carrying a websocket upgrade is handed to the websocket transport.
func (h *GraphQLHandler) ServeGraphQL(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		if !h.websocket {
			h.respondWithError(w, http.StatusBadRequest, "websocket transport is disabled")
			return
		}
		h.serveWS(w, r)
		return
	}

	var req graph.Request
	var err error
	if r.Method == http.MethodGet {
		req, err = requestFromQuery(r)
	} else {
		req, err = requestFromBody(r)
	}
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.respondWithError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp := h.execute(r.Context(), req, transportHTTP)
	h.respondWithJSON(w, http.StatusOK, resp)
}

func (h *GraphQLHandler) execute(ctx context.Context, req graph.Request, transport string) *graph.Response {
	start := time.Now()
	resp := h.executor.Execute(ctx, req)
	h.record(ctx, req, resp, transport, time.Since(start))
	return resp
}

func (h *GraphQLHandler) record(ctx context.Context, req graph.Request, resp *graph.Response, transport string, elapsed time.Duration) {
	if h.queryLog == nil {
		return
	}

	record := &domain.QueryRecord{
		OperationName: req.OperationName,
		Query:         req.Query,
		Transport:     transport,
		Duration:      elapsed,
		ErrorCount:    len(resp.Errors),
	}
	// The request may already be cancelled; the record should still land.
	if err := h.queryLog.Record(context.WithoutCancel(ctx), record); err != nil {
		h.logger.Warn("failed to record query", zap.Error(err))
	}
}

func requestFromQuery(r *http.Request) (graph.Request, error) {
	values := r.URL.Query()
	req := graph.Request{
		Query:         values.Get("query"),
		OperationName: values.Get("operationName"),
	}
	if vars := values.Get("variables"); vars != "" {
		if err := decodeJSON(strings.NewReader(vars), &req.Variables); err != nil {
			return req, errInvalid("invalid variables")
		}
	}
	return req, nil
}

func requestFromBody(r *http.Request) (graph.Request, error) {
	var req graph.Request
	body := io.LimitReader(r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/graphql" {
		data, err := io.ReadAll(body)
		if err != nil {
			return req, errInvalid("invalid request body")
		}
		req.Query = string(data)
		return req, nil
	}

	if err := decodeJSON(body, &req); err != nil {
		return req, errInvalid("invalid request body")
	}
	return req, nil
}

// decodeJSON keeps numbers as json.Number so Int variables stay exact.
func decodeJSON(r io.Reader, v interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	return decoder.Decode(v)
}

type errInvalid string

func (e errInvalid) Error() string { return string(e) }

func (h *GraphQLHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *GraphQLHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
