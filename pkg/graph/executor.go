// Package graph executes GraphQL queries against the encore schema.
//
// Documents are parsed and validated with gqlparser, then the selection tree
// is walked with one goroutine per object field and per list element. Every
// field is resolved through the resolvers table; field failures are recorded
// with their path and never abort sibling fields.
package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yair/encore/pkg/loader"
	"github.com/yair/encore/pkg/metrics"
	"github.com/yair/encore/pkg/resolvers"
)

const (
	defaultMaxDepth       = 10
	defaultMaxConcurrency = 16
)

type Config struct {
	Resolver *resolvers.Resolver
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// MaxDepth bounds selection nesting.
	MaxDepth int
	// MaxConcurrency bounds in-flight upstream resolvers per query.
	MaxConcurrency int
	// Timeout bounds a whole query; zero means no limit beyond the caller's
	// context.
	Timeout time.Duration
}

type Executor struct {
	schema   *ast.Schema
	resolver *resolvers.Resolver
	table    resolvers.Table
	policy   *resolvers.Policy
	logger   *zap.Logger
	metrics  *metrics.Metrics

	maxDepth       int
	maxConcurrency int64
	timeout        time.Duration
}

// Request is a GraphQL request as sent over HTTP or a websocket.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Response holds the result tree and every error raised while producing it.
// Data is nil when the request failed before execution started.
type Response struct {
	Data   interface{}   `json:"data,omitempty"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

func New(cfg Config) *Executor {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = resolvers.New(resolvers.Config{Logger: logger, Metrics: cfg.Metrics})
	}

	return &Executor{
		schema:         loadSchema(),
		resolver:       resolver,
		table:          resolver.Table(),
		policy:         resolvers.NewPolicy(logger),
		logger:         logger,
		metrics:        cfg.Metrics,
		maxDepth:       cfg.MaxDepth,
		maxConcurrency: int64(cfg.MaxConcurrency),
		timeout:        cfg.Timeout,
	}
}

func (e *Executor) Schema() *ast.Schema {
	return e.schema
}

// Table returns the resolution table the executor dispatches through.
func (e *Executor) Table() resolvers.Table {
	return e.table
}

// Execute runs one query. It never returns nil; all failures are reported in
// Response.Errors.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	start := time.Now()
	resp := e.execute(ctx, req)
	elapsed := time.Since(start)

	e.metrics.ObserveQuery(len(resp.Errors), elapsed)
	e.logger.Info("query executed",
		zap.String("operation", req.OperationName),
		zap.Duration("duration", elapsed),
		zap.Int("errors", len(resp.Errors)))
	return resp
}

func (e *Executor) execute(ctx context.Context, req Request) *Response {
	doc, errs := gqlparser.LoadQueryWithRules(e.schema, req.Query, nil)
	if len(errs) > 0 {
		resp := &Response{}
		for _, err := range errs {
			resp.Errors = append(resp.Errors, requestError(err))
		}
		return resp
	}

	op, err := selectOperation(doc, req.OperationName)
	if err != nil {
		return &Response{Errors: gqlerror.List{requestError(err)}}
	}
	if op.Operation != ast.Query {
		return &Response{Errors: gqlerror.List{requestError(fmt.Errorf("%s operations are not supported", op.Operation))}}
	}
	if d := selectionDepth(op.SelectionSet); d > e.maxDepth {
		return &Response{Errors: gqlerror.List{requestError(fmt.Errorf("query depth %d exceeds the limit of %d", d, e.maxDepth))}}
	}

	FixNumberVariables(req.Variables)
	vars, err := validator.VariableValues(e.schema, op, req.Variables)
	if err != nil {
		return &Response{Errors: gqlerror.List{requestError(err)}}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	tick := loader.NewTick()
	ctx = loader.WithTick(ctx, tick)
	ctx = e.resolver.WithRequest(ctx, tick)

	x := &execution{
		Executor: e,
		vars:     vars,
		tick:     tick,
		sem:      semaphore.NewWeighted(e.maxConcurrency),
	}

	tick.Enter()
	data, ok := x.selectionSet(ctx, e.schema.Query, nil, op.SelectionSet, nil)
	tick.Leave()

	resp := &Response{Errors: x.sortedErrors()}
	if ok {
		resp.Data = data
	}
	return resp
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	if name == "" && len(doc.Operations) > 1 {
		return nil, fmt.Errorf("operationName is required for a document with %d operations", len(doc.Operations))
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, fmt.Errorf("unknown operation %q", name)
	}
	return op, nil
}

// selectionDepth counts nested object levels, looking through fragments.
func selectionDepth(set ast.SelectionSet) int {
	deepest := 0
	for _, sel := range set {
		d := 0
		switch s := sel.(type) {
		case *ast.Field:
			d = 1 + selectionDepth(s.SelectionSet)
		case *ast.InlineFragment:
			d = selectionDepth(s.SelectionSet)
		case *ast.FragmentSpread:
			if s.Definition != nil {
				d = selectionDepth(s.Definition.SelectionSet)
			}
		}
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}

func (x *execution) sortedErrors() gqlerror.List {
	x.mu.Lock()
	defer x.mu.Unlock()
	errs := append(gqlerror.List(nil), x.errs...)
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Path.String() < errs[j].Path.String()
	})
	return errs
}
