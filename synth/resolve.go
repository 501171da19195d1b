package synth

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

var builtinTypes = map[string]reflect.Type{
	"bool":          reflect.TypeOf(false),
	"string":        reflect.TypeOf(""),
	"int":           reflect.TypeOf(int(0)),
	"int8":          reflect.TypeOf(int8(0)),
	"int16":         reflect.TypeOf(int16(0)),
	"int32":         reflect.TypeOf(int32(0)),
	"rune":          reflect.TypeOf(rune(0)),
	"int64":         reflect.TypeOf(int64(0)),
	"uint":          reflect.TypeOf(uint(0)),
	"uint8":         reflect.TypeOf(uint8(0)),
	"byte":          reflect.TypeOf(byte(0)),
	"uint16":        reflect.TypeOf(uint16(0)),
	"uint32":        reflect.TypeOf(uint32(0)),
	"uint64":        reflect.TypeOf(uint64(0)),
	"uintptr":       reflect.TypeOf(uintptr(0)),
	"float32":       reflect.TypeOf(float32(0)),
	"float64":       reflect.TypeOf(float64(0)),
	"complex64":     reflect.TypeOf(complex64(0)),
	"complex128":    reflect.TypeOf(complex128(0)),
	"any":           reflect.TypeOf((*any)(nil)).Elem(),
	"interface{}":   reflect.TypeOf((*any)(nil)).Elem(),
	"error":         reflect.TypeOf((*error)(nil)).Elem(),
	"time.Time":     reflect.TypeOf(time.Time{}),
	"time.Duration": reflect.TypeOf(time.Duration(0)),
}

// TypeResolver maps attribute type expressions to Go types for the reflect
// backend. Builtins, time.Time and time.Duration are known; anything else
// must be registered. Pointer and array forms of known types resolve too.
type TypeResolver struct {
	mu         sync.RWMutex
	registered map[string]reflect.Type
}

// NewTypeResolver returns a resolver that knows the builtin types.
func NewTypeResolver() *TypeResolver {
	return &TypeResolver{registered: map[string]reflect.Type{}}
}

// Register makes typ resolvable under expr, e.g. "billing.Money".
func (r *TypeResolver) Register(expr string, typ reflect.Type) {
	if typ == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[strings.TrimSpace(expr)] = typ
}

// RegisterValue registers the dynamic type of sample under its own name.
func (r *TypeResolver) RegisterValue(sample any) {
	typ := reflect.TypeOf(sample)
	if typ == nil {
		return
	}
	r.Register(typ.String(), typ)
}

// Resolve returns the Go type of field. A field carrying GoType wins over
// its textual type.
func (r *TypeResolver) Resolve(field Field) (reflect.Type, error) {
	if field.GoType != nil {
		return field.GoType, nil
	}
	return r.ResolveExpr(field.Type)
}

// ResolveExpr resolves a type expression.
func (r *TypeResolver) ResolveExpr(expr string) (reflect.Type, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty type expression")
	}
	r.mu.RLock()
	typ, ok := r.registered[expr]
	r.mu.RUnlock()
	if ok {
		return typ, nil
	}
	if typ, ok := builtinTypes[expr]; ok {
		return typ, nil
	}
	switch {
	case strings.HasPrefix(expr, "*"):
		elem, err := r.ResolveExpr(expr[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case strings.HasPrefix(expr, "[]"):
		return nil, fmt.Errorf("slice type %s is not supported", expr)
	case strings.HasPrefix(expr, "map["):
		return nil, fmt.Errorf("map type %s is not supported", expr)
	case strings.HasPrefix(expr, "["):
		end := strings.IndexByte(expr, ']')
		if end < 0 {
			return nil, fmt.Errorf("malformed array type %s", expr)
		}
		n, err := strconv.Atoi(expr[1:end])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("malformed array length in %s", expr)
		}
		elem, err := r.ResolveExpr(expr[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, elem), nil
	}
	return nil, fmt.Errorf("unknown type %s", expr)
}
