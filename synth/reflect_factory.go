package synth

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/host"
)

// ReflectFactory materializes types in the host process. Storage is a
// struct built with reflect.StructOf; members run as ordinary Go.
type ReflectFactory struct {
	resolver *TypeResolver
}

// NewReflectFactory returns a factory resolving attribute types through
// resolver, or through a fresh resolver when it is nil.
func NewReflectFactory(resolver *TypeResolver) *ReflectFactory {
	if resolver == nil {
		resolver = NewTypeResolver()
	}
	return &ReflectFactory{resolver: resolver}
}

// Resolver returns the resolver used for attribute types.
func (f *ReflectFactory) Resolver() *TypeResolver { return f.resolver }

// CreateType builds the storage layout for spec and declares the type in
// container.
func (f *ReflectFactory) CreateType(container *host.Container, spec TypeSpec) (Type, error) {
	fields := make([]reflect.StructField, len(spec.Fields))
	types := make([]reflect.Type, len(spec.Fields))
	index := make(map[string]int, len(spec.Fields))
	for i, field := range spec.Fields {
		typ, err := f.resolver.Resolve(field)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", field.Accessor, err)
		}
		if _, custom := equalMethod(typ); !custom && !typ.Comparable() {
			return nil, fmt.Errorf("attribute %s: type %s has no default equality", field.Accessor, typ)
		}
		types[i] = typ
		index[field.Accessor] = i
		fields[i] = reflect.StructField{
			Name: "F_" + field.Accessor,
			Type: typ,
			Tag:  reflect.StructTag(fmt.Sprintf(`valobj:%q`, field.Name)),
		}
	}
	storage, err := structOf(fields)
	if err != nil {
		return nil, err
	}
	typ := &reflectType{
		spec:      spec,
		container: container,
		storage:   storage,
		types:     types,
		index:     index,
	}
	if err := container.Declare(host.Symbol{Name: spec.Name, Kind: host.KindSynthesized, Value: typ}); err != nil {
		return nil, err
	}
	return typ, nil
}

func structOf(fields []reflect.StructField) (typ reflect.Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build storage: %v", r)
		}
	}()
	return reflect.StructOf(fields), nil
}

type reflectType struct {
	spec      TypeSpec
	container *host.Container
	storage   reflect.Type
	types     []reflect.Type
	index     map[string]int
}

func (t *reflectType) Name() string { return t.spec.Name }
func (t *reflectType) Contract() *contract.Contract { return t.spec.Contract }
func (t *reflectType) Container() *host.Container { return t.container }
func (t *reflectType) Spec() TypeSpec { return t.spec }
func (t *reflectType) Fields() []Field { return append([]Field(nil), t.spec.Fields...) }
func (t *reflectType) Params() []Param { return append([]Param(nil), t.spec.Params...) }
func (t *reflectType) Members() []Member { return append([]Member(nil), t.spec.Members...) }

// Storage returns the struct type holding the attribute values.
func (t *reflectType) Storage() reflect.Type { return t.storage }

func (t *reflectType) New(args ...any) (Value, error) {
	if len(args) != len(t.types) {
		return nil, fmt.Errorf("%s: constructor takes %d arguments, got %d", t.spec.Name, len(t.types), len(args))
	}
	data := reflect.New(t.storage).Elem()
	for i, arg := range args {
		v, err := argumentValue(arg, t.types[i])
		if err != nil {
			return nil, fmt.Errorf("%s: argument %s: %w", t.spec.Name, t.spec.Params[i].Name, err)
		}
		data.Field(i).Set(v)
	}
	return &reflectValue{typ: t, data: data}, nil
}

// argumentValue converts a constructor argument to its field type without
// any coercion: nil is the zero value of nilable types, anything else must
// be assignable.
func argumentValue(arg any, typ reflect.Type) (reflect.Value, error) {
	if arg == nil {
		if !isNilable(typ.Kind()) {
			return reflect.Value{}, fmt.Errorf("nil is not a %s", typ)
		}
		return reflect.Zero(typ), nil
	}
	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(typ) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), typ)
	}
	out := reflect.New(typ).Elem()
	out.Set(v)
	return out, nil
}

type reflectValue struct {
	typ  *reflectType
	data reflect.Value
}

func (v *reflectValue) Type() Type { return v.typ }

func (v *reflectValue) Get(attribute string) (any, bool) {
	i, ok := v.typ.index[attribute]
	if !ok {
		return nil, false
	}
	return v.data.Field(i).Interface(), true
}

func (v *reflectValue) Attributes() []any {
	out := make([]any, v.data.NumField())
	for i := range out {
		out[i] = v.data.Field(i).Interface()
	}
	return out
}

func (v *reflectValue) Equal(other Value) bool {
	if v == nil || isNilValue(other) {
		return false
	}
	if o, ok := other.(*reflectValue); ok && o.typ == v.typ {
		for i := range v.typ.types {
			if !fieldsEqual(v.data.Field(i), o.data.Field(i)) {
				return false
			}
		}
		return true
	}
	return sameContract(v.typ.spec.Contract, other.Type().Contract()) && equalByAccessors(v, other, v.typ.types)
}

func (v *reflectValue) Equals(other any) bool {
	o, ok := other.(Value)
	if !ok || v == nil || isNilValue(o) || o.Type() != Type(v.typ) {
		return false
	}
	return v.Equal(o)
}

func (v *reflectValue) Hash() uint64 {
	if v == nil {
		return 0
	}
	hashes := make([]uint64, len(v.typ.types))
	for i := range hashes {
		hashes[i] = hashField(v.data.Field(i))
	}
	return combineHashes(hashes)
}

func (v *reflectValue) String() string {
	return formatValue(v.typ.spec, v.Attributes())
}

// equalByAccessors compares v with a value from another type implementing
// the same contract, reading other through its accessors.
func equalByAccessors(v Value, other Value, types []reflect.Type) bool {
	fields := v.Type().Fields()
	mine := v.Attributes()
	for i, field := range fields {
		theirs, ok := other.Get(field.Accessor)
		if !ok {
			return false
		}
		a, err := argumentValue(mine[i], types[i])
		if err != nil {
			return false
		}
		b, err := argumentValue(theirs, types[i])
		if err != nil {
			return false
		}
		if !fieldsEqual(a, b) {
			return false
		}
	}
	return true
}

func sameContract(a, b *contract.Contract) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || a.QualifiedName() == b.QualifiedName()
}

func formatValue(spec TypeSpec, values []any) string {
	var b strings.Builder
	b.WriteString(spec.Name)
	b.WriteByte('{')
	for i, field := range spec.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", field.Accessor, values[i])
	}
	b.WriteByte('}')
	return b.String()
}
