package resolvers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Fallback is the degradation rule applied when a resolver fails.
type Fallback int

const (
	// FallbackPropagate reports the failure as a field error.
	FallbackPropagate Fallback = iota
	// FallbackNull reports the field as absent.
	FallbackNull
	// FallbackRetryAlternate marks fields whose connector already tried an
	// alternate source; a remaining failure is propagated.
	FallbackRetryAlternate
)

func (f Fallback) String() string {
	switch f {
	case FallbackPropagate:
		return "propagate"
	case FallbackNull:
		return "null"
	case FallbackRetryAlternate:
		return "retry-alternate"
	}
	return fmt.Sprintf("Fallback(%d)", int(f))
}

// Policy applies the per-field fallback rules.
type Policy struct {
	logger *zap.Logger
}

func NewPolicy(logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{logger: logger}
}

// Resolve runs s and degrades its failure according to s.Fallback. A field
// with FallbackNull never fails, except when the request itself was
// abandoned.
func (p *Policy) Resolve(ctx context.Context, typeName, fieldName string, s Strategy, params Params) (interface{}, error) {
	value, err := s.Resolve(ctx, params)
	if err == nil {
		return value, nil
	}

	switch s.Fallback {
	case FallbackNull:
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, err
		}
		p.logger.Debug("field degraded to null",
			zap.String("type", typeName),
			zap.String("field", fieldName),
			zap.Error(err))
		return nil, nil
	default:
		return nil, err
	}
}
