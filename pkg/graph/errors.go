package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/resolvers"
)

// Error codes reported in extensions.code.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeUpstreamError    = "UPSTREAM_ERROR"
	CodeNoData           = "NO_DATA"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeCancelled        = "CANCELLED"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeParseFailed      = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
)

// panicError is a recovered resolver panic.
type panicError struct {
	value interface{}
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

var errNullField = errors.New("cannot return null for non-nullable field")

// fieldError converts a resolver failure into a located GraphQL error.
func fieldError(err error, field *ast.Field, path ast.Path) *gqlerror.Error {
	code, message := classify(err)
	gqlErr := &gqlerror.Error{
		Err:     err,
		Message: message,
		Path:    path,
		Extensions: map[string]interface{}{
			"code": code,
		},
	}
	if field != nil && field.Position != nil {
		gqlErr.Locations = []gqlerror.Location{{Line: field.Position.Line, Column: field.Position.Column}}
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		gqlErr.Extensions["connector"] = upstream.Connector
		gqlErr.Extensions["status"] = upstream.StatusCode
	}
	return gqlErr
}

func classify(err error) (code, message string) {
	var upstream *domain.UpstreamError
	var panicked panicError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded, "query timeout exceeded"
	case errors.Is(err, context.Canceled):
		return CodeCancelled, "query cancelled"
	case errors.As(err, &panicked):
		return CodeInternalError, "internal error"
	case errors.Is(err, errNullField):
		return CodeInternalError, err.Error()
	case errors.Is(err, domain.ErrInvalidRequest):
		return CodeInvalidInput, err.Error()
	case errors.Is(err, domain.ErrNoWeatherData):
		return CodeNoData, err.Error()
	case errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound:
		return CodeNotFound, err.Error()
	case errors.Is(err, domain.ErrExternalAPIFailure), errors.Is(err, resolvers.ErrSourceUnavailable):
		return CodeUpstreamError, err.Error()
	}
	return CodeInternalError, err.Error()
}

// requestError reports a failure that prevented execution, such as a parse
// or variable error. Errors produced by gqlparser keep their locations.
func requestError(err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		if gqlErr.Extensions == nil {
			gqlErr.Extensions = map[string]interface{}{}
		}
		if _, ok := gqlErr.Extensions["code"]; !ok {
			gqlErr.Extensions["code"] = CodeParseFailed
			if gqlErr.Rule != "" {
				gqlErr.Extensions["code"] = CodeValidationFailed
			}
		}
		return gqlErr
	}
	return &gqlerror.Error{
		Err:        err,
		Message:    err.Error(),
		Extensions: map[string]interface{}{"code": CodeInvalidInput},
	}
}
