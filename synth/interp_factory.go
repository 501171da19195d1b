package synth

import (
	"fmt"
	"reflect"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/host"
)

// InterpretedFactory renders each type as Go source and evaluates it in the
// container's interpreter. Attribute types are limited to what the
// interpreter's standard library symbols can express.
type InterpretedFactory struct{}

// NewInterpretedFactory returns an interpreter-backed factory.
func NewInterpretedFactory() *InterpretedFactory {
	return &InterpretedFactory{}
}

// CreateType declares the contract interface once per container, then
// evaluates the value type and binds its constructor and bridge functions.
func (f *InterpretedFactory) CreateType(container *host.Container, spec TypeSpec) (Type, error) {
	contractSrc, err := RenderContract(spec, "main")
	if err != nil {
		return nil, err
	}
	contractSym := host.Symbol{
		Name:      spec.Contract.Name,
		Kind:      host.KindContract,
		Value:     spec.Contract,
		Signature: spec.Signature(),
	}
	if err := container.EnsureDeclared(contractSym, string(contractSrc)); err != nil {
		return nil, fmt.Errorf("declare contract %s: %w", spec.Contract.Name, err)
	}

	src, err := RenderSource(spec, SourceOptions{Package: "main", Bridges: true})
	if err != nil {
		return nil, err
	}
	typ := &interpType{spec: spec, container: container, index: map[string]int{}}
	for i, field := range spec.Fields {
		typ.index[field.Accessor] = i
	}
	if _, err := container.EvalDeclare(string(src), host.Symbol{Name: spec.Name, Kind: host.KindSynthesized, Value: typ}); err != nil {
		return nil, err
	}
	if typ.ctor, err = lookupFunc(container, "New"+spec.Name, len(spec.Fields)); err != nil {
		return nil, err
	}
	if typ.equals, err = lookupFunc(container, "bridgeEquals"+spec.Name, 2); err != nil {
		return nil, err
	}
	if typ.hash, err = lookupFunc(container, "bridgeHash"+spec.Name, 1); err != nil {
		return nil, err
	}
	typ.types = make([]reflect.Type, len(spec.Fields))
	for i := range typ.types {
		typ.types[i] = typ.ctor.Type().In(i)
	}
	return typ, nil
}

func lookupFunc(container *host.Container, name string, arity int) (reflect.Value, error) {
	fn, err := container.Eval(name)
	if err != nil {
		return reflect.Value{}, err
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("%s is not a function", name)
	}
	if fn.Type().NumIn() != arity {
		return reflect.Value{}, fmt.Errorf("%s takes %d arguments, want %d", name, fn.Type().NumIn(), arity)
	}
	return fn, nil
}

type interpType struct {
	spec      TypeSpec
	container *host.Container
	index     map[string]int
	types     []reflect.Type
	ctor      reflect.Value
	equals    reflect.Value
	hash      reflect.Value
}

func (t *interpType) Name() string { return t.spec.Name }
func (t *interpType) Contract() *contract.Contract { return t.spec.Contract }
func (t *interpType) Container() *host.Container { return t.container }
func (t *interpType) Spec() TypeSpec { return t.spec }
func (t *interpType) Fields() []Field { return append([]Field(nil), t.spec.Fields...) }
func (t *interpType) Params() []Param { return append([]Param(nil), t.spec.Params...) }
func (t *interpType) Members() []Member { return append([]Member(nil), t.spec.Members...) }

func (t *interpType) New(args ...any) (Value, error) {
	if len(args) != len(t.types) {
		return nil, fmt.Errorf("%s: constructor takes %d arguments, got %d", t.spec.Name, len(t.types), len(args))
	}
	in := make([]reflect.Value, len(args))
	stored := make([]any, len(args))
	for i, arg := range args {
		v, err := argumentValue(arg, t.types[i])
		if err != nil {
			return nil, fmt.Errorf("%s: argument %s: %w", t.spec.Name, t.spec.Params[i].Name, err)
		}
		in[i] = v
		stored[i] = v.Interface()
	}
	out := t.ctor.Call(in)
	if len(out) != 1 || !out[0].IsValid() {
		return nil, fmt.Errorf("%s: constructor returned no value", t.spec.Name)
	}
	return &interpValue{typ: t, args: stored, inst: out[0]}, nil
}

type interpValue struct {
	typ  *interpType
	args []any
	// inst is the interpreted instance the constructor produced.
	inst reflect.Value
}

func (v *interpValue) Type() Type { return v.typ }

// Instance returns the interpreted value.
func (v *interpValue) Instance() reflect.Value { return v.inst }

func (v *interpValue) Get(attribute string) (any, bool) {
	i, ok := v.typ.index[attribute]
	if !ok {
		return nil, false
	}
	return v.args[i], true
}

func (v *interpValue) Attributes() []any {
	return append([]any(nil), v.args...)
}

func (v *interpValue) Equal(other Value) bool {
	if v == nil || isNilValue(other) {
		return false
	}
	if o, ok := other.(*interpValue); ok && o.typ == v.typ {
		return v.bridgeEquals(o)
	}
	return sameContract(v.typ.spec.Contract, other.Type().Contract()) && equalByAccessors(v, other, v.typ.types)
}

func (v *interpValue) Equals(other any) bool {
	o, ok := other.(*interpValue)
	if !ok || v == nil || o == nil || o.typ != v.typ {
		return false
	}
	return v.bridgeEquals(o)
}

func (v *interpValue) bridgeEquals(o *interpValue) bool {
	out := v.typ.equals.Call([]reflect.Value{reflect.ValueOf(v.args), reflect.ValueOf(o.args)})
	return len(out) == 1 && out[0].Bool()
}

func (v *interpValue) Hash() uint64 {
	if v == nil {
		return 0
	}
	out := v.typ.hash.Call([]reflect.Value{reflect.ValueOf(v.args)})
	if len(out) != 1 {
		return 0
	}
	return out[0].Uint()
}

func (v *interpValue) String() string {
	return formatValue(v.typ.spec, v.args)
}
