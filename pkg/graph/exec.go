package graph

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/dolmen-go/jsonmap"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/loader"
	"github.com/yair/encore/pkg/resolvers"
)

// execution is the state of one query evaluation.
type execution struct {
	*Executor

	vars map[string]interface{}
	tick *loader.Tick
	sem  *semaphore.Weighted

	mu   sync.Mutex
	errs gqlerror.List
}

func (x *execution) addError(err *gqlerror.Error) {
	x.mu.Lock()
	x.errs = append(x.errs, err)
	x.mu.Unlock()
}

// selectionSet resolves the fields of set against parent, concurrently. The
// result is a jsonmap.Ordered in request order. ok is false when a non-null
// field came back null, in which case the whole object is null.
func (x *execution) selectionSet(ctx context.Context, objType *ast.Definition, parent interface{}, set ast.SelectionSet, path ast.Path) (interface{}, bool) {
	fields := x.collectFields(objType, set)
	values := make([]interface{}, len(fields))
	oks := make([]bool, len(fields))

	var g errgroup.Group
	for i, f := range fields {
		i, f := i, f
		fieldPath := extendPath(path, ast.PathName(f.Alias))
		if x.inline(objType, f) {
			values[i], oks[i] = x.field(ctx, objType, parent, f, fieldPath)
			continue
		}
		x.tick.Enter()
		g.Go(func() error {
			defer x.tick.Leave()
			values[i], oks[i] = x.field(ctx, objType, parent, f, fieldPath)
			return nil
		})
	}
	x.tick.Block(func() { _ = g.Wait() })

	result := jsonmap.Ordered{
		Data:  make(map[string]interface{}, len(fields)),
		Order: make([]string, 0, len(fields)),
	}
	for i, f := range fields {
		if !oks[i] {
			return nil, false
		}
		result.Order = append(result.Order, f.Alias)
		result.Data[f.Alias] = values[i]
	}
	return result, true
}

// inline reports whether f can be resolved on the parent's goroutine: leaf
// fields that read or derive from the parent without I/O.
func (x *execution) inline(objType *ast.Definition, f *ast.Field) bool {
	if f.Name == "__typename" {
		return true
	}
	if len(f.SelectionSet) > 0 {
		return false
	}
	s, ok := x.table.Lookup(objType.Name, f.Name)
	return ok && !s.Kind.Blocking() && !s.Batched
}

func (x *execution) field(ctx context.Context, objType *ast.Definition, parent interface{}, f *ast.Field, path ast.Path) (interface{}, bool) {
	if f.Name == "__typename" {
		return objType.Name, true
	}

	nullable := f.Definition == nil || !f.Definition.Type.NonNull

	s, ok := x.table.Lookup(objType.Name, f.Name)
	if !ok {
		err := fmt.Errorf("%w: %s.%s cannot be resolved", domain.ErrInvalidRequest, objType.Name, f.Name)
		x.addError(fieldError(err, f, path))
		return nil, nullable
	}

	value, err := x.resolve(ctx, objType.Name, f, s, resolvers.Params{
		Parent: parent,
		Args:   f.ArgumentMap(x.vars),
	})
	if err != nil {
		x.addError(fieldError(err, f, path))
		return nil, nullable
	}
	return x.complete(ctx, f, f.Definition.Type, value, path)
}

// resolve runs the field strategy. Upstream resolvers run as blocked for the
// request tick, so pending loader batches can dispatch while they wait, and
// are bounded by the request semaphore.
func (x *execution) resolve(ctx context.Context, typeName string, f *ast.Field, s resolvers.Strategy, p resolvers.Params) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("resolver panic",
				zap.String("type", typeName),
				zap.String("field", f.Name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			value, err = nil, panicError{value: r}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.Kind.Blocking() || s.Batched {
		return x.policy.Resolve(ctx, typeName, f.Name, s, p)
	}

	x.tick.Block(func() {
		if err = x.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer x.sem.Release(1)
		value, err = x.policy.Resolve(ctx, typeName, f.Name, s, p)
	})
	return value, err
}

// complete shapes a resolved value according to its schema type.
func (x *execution) complete(ctx context.Context, f *ast.Field, typ *ast.Type, value interface{}, path ast.Path) (interface{}, bool) {
	if isNil(value) {
		if typ.NonNull {
			x.addError(fieldError(fmt.Errorf("%w %s", errNullField, path), f, path))
			return nil, false
		}
		return nil, true
	}

	if typ.Elem != nil {
		return x.completeList(ctx, f, typ, value, path)
	}

	def := x.schema.Types[typ.NamedType]
	if def == nil {
		x.addError(fieldError(fmt.Errorf("unknown type %s", typ.NamedType), f, path))
		return nil, !typ.NonNull
	}

	switch def.Kind {
	case ast.Object:
		obj, ok := x.selectionSet(ctx, def, indirect(value), f.SelectionSet, path)
		if !ok {
			return nil, !typ.NonNull
		}
		return obj, true

	case ast.Enum:
		name := fmt.Sprint(indirect(value))
		if def.EnumValues.ForName(name) == nil {
			x.addError(fieldError(fmt.Errorf("%q is not a valid %s", name, def.Name), f, path))
			return nil, !typ.NonNull
		}
		return name, true

	default:
		v, err := serializeScalar(def.Name, indirect(value))
		if err != nil {
			x.addError(fieldError(err, f, path))
			return nil, !typ.NonNull
		}
		return v, true
	}
}

func (x *execution) completeList(ctx context.Context, f *ast.Field, typ *ast.Type, value interface{}, path ast.Path) (interface{}, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		x.addError(fieldError(fmt.Errorf("expected a list for %s, got %T", typ, value), f, path))
		return nil, !typ.NonNull
	}

	n := rv.Len()
	items := make([]interface{}, n)
	oks := make([]bool, n)
	leaf := typ.Elem.Elem == nil && !x.isObject(typ.Elem.NamedType)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i, item := i, rv.Index(i).Interface()
		itemPath := extendPath(path, ast.PathIndex(i))
		if leaf {
			items[i], oks[i] = x.complete(ctx, f, typ.Elem, item, itemPath)
			continue
		}
		x.tick.Enter()
		g.Go(func() error {
			defer x.tick.Leave()
			items[i], oks[i] = x.complete(ctx, f, typ.Elem, item, itemPath)
			return nil
		})
	}
	x.tick.Block(func() { _ = g.Wait() })

	for _, ok := range oks {
		if !ok {
			return nil, !typ.NonNull
		}
	}
	return items, true
}

func (x *execution) isObject(name string) bool {
	def := x.schema.Types[name]
	return def != nil && def.Kind == ast.Object
}

// collectFields flattens fragments and applies @skip/@include. Fields with
// the same response name are merged.
func (x *execution) collectFields(objType *ast.Definition, set ast.SelectionSet) []*ast.Field {
	var fields []*ast.Field
	index := map[string]int{}

	var walk func(set ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				if x.directiveBypass(s.Directives) {
					continue
				}
				if i, ok := index[s.Alias]; ok {
					merged := *fields[i]
					merged.SelectionSet = append(append(ast.SelectionSet{}, fields[i].SelectionSet...), s.SelectionSet...)
					fields[i] = &merged
					continue
				}
				index[s.Alias] = len(fields)
				fields = append(fields, s)

			case *ast.InlineFragment:
				if x.directiveBypass(s.Directives) || !typeApplies(objType, s.TypeCondition) {
					continue
				}
				walk(s.SelectionSet)

			case *ast.FragmentSpread:
				if x.directiveBypass(s.Directives) || s.Definition == nil || !typeApplies(objType, s.Definition.TypeCondition) {
					continue
				}
				walk(s.Definition.SelectionSet)
			}
		}
	}
	walk(set)
	return fields
}

// directiveBypass reports whether @skip or @include excludes a selection.
func (x *execution) directiveBypass(directives ast.DirectiveList) bool {
	for _, d := range directives {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		arg := d.Arguments.ForName("if")
		if arg == nil {
			continue
		}
		v, err := arg.Value.Value(x.vars)
		if err != nil {
			continue
		}
		if b, ok := v.(bool); ok && b == (d.Name == "skip") {
			return true
		}
	}
	return false
}

func typeApplies(objType *ast.Definition, condition string) bool {
	return condition == "" || condition == objType.Name
}

func extendPath(path ast.Path, el ast.PathElement) ast.Path {
	p := make(ast.Path, len(path), len(path)+1)
	copy(p, path)
	return append(p, el)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func indirect(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func serializeScalar(name string, v interface{}) (interface{}, error) {
	switch name {
	case "String":
		switch s := v.(type) {
		case string:
			return s, nil
		case fmt.Stringer:
			return s.String(), nil
		}
	case "ID":
		switch id := v.(type) {
		case string:
			return id, nil
		case int:
			return strconv.Itoa(id), nil
		case int64:
			return strconv.FormatInt(id, 10), nil
		}
	case "Int":
		switch i := v.(type) {
		case int:
			return i, nil
		case int32:
			return int(i), nil
		case int64:
			return int(i), nil
		case float64:
			if i == float64(int(i)) {
				return int(i), nil
			}
		}
	case "Float":
		switch f := v.(type) {
		case float64:
			return f, nil
		case float32:
			return float64(f), nil
		case int:
			return float64(f), nil
		case int64:
			return float64(f), nil
		}
	case "Boolean":
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("cannot serialize %T as %s", v, name)
}
