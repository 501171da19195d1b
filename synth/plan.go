package synth

import (
	"fmt"
	"go/token"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kingrea/valobj/contract"
)

// Member names every synthesized type carries besides its accessors.
const (
	MemberEqual      = "Equal"
	MemberEquals     = "Equals"
	MemberHash       = "Hash"
	MemberEqualOp    = "EqualOp"
	MemberNotEqualOp = "NotEqualOp"
)

// MemberKind classifies the members of a planned type.
type MemberKind int

const (
	MemberAccessor MemberKind = iota
	MemberTypedEquality
	MemberGenericEquality
	MemberHashCode
	MemberOperator
)

func (k MemberKind) String() string {
	switch k {
	case MemberAccessor:
		return "accessor"
	case MemberTypedEquality:
		return "typed-equality"
	case MemberGenericEquality:
		return "generic-equality"
	case MemberHashCode:
		return "hash"
	case MemberOperator:
		return "operator"
	default:
		return "unknown"
	}
}

// Field is the private storage of one attribute.
type Field struct {
	// Name is the unexported storage name, e.g. "number" for Number.
	Name string
	// Accessor is the attribute name the field backs.
	Accessor string
	Type     string
	GoType   reflect.Type
}

// Param is one constructor parameter.
type Param struct {
	Name string
	Type string
}

// Member is one generated method or operator.
type Member struct {
	Name      string
	Kind      MemberKind
	Signature string
}

// TypeSpec is everything a factory needs to materialize a value type.
type TypeSpec struct {
	Name     string
	Contract *contract.Contract
	Imports  []string
	Fields   []Field
	Params   []Param
	Members  []Member
}

// reserved names the generated code uses for receivers, parameters, locals
// and the packages its helpers import.
var reservedStorage = map[string]bool{
	"v":       true,
	"other":   true,
	"h":       true,
	"ok":      true,
	"x":       true,
	"a":       true,
	"b":       true,
	"args":    true,
	"fmt":     true,
	"fnv":     true,
	"math":    true,
	"reflect": true,
	"time":    true,
}

var generatedMembers = map[string]bool{
	MemberEqual:      true,
	MemberEquals:     true,
	MemberHash:       true,
	MemberEqualOp:    true,
	MemberNotEqualOp: true,
	"String":         true,
}

// Plan lays out the storage, constructor and members of typeName.
func Plan(typeName string, c *contract.Contract, shape contract.Shape) (TypeSpec, error) {
	if !token.IsIdentifier(typeName) {
		return TypeSpec{}, fmt.Errorf("type name %q is not a Go identifier", typeName)
	}
	spec := TypeSpec{Name: typeName, Contract: c, Imports: collectImports(c)}
	// Storage names double as constructor parameters, so they must not
	// shadow a package an attribute type is qualified with.
	used := map[string]bool{}
	for _, attr := range shape.Attributes {
		for _, q := range contract.TypeQualifiers(attr.Type) {
			used[q] = true
		}
	}
	for _, attr := range shape.Attributes {
		if generatedMembers[attr.Name] {
			return TypeSpec{}, fmt.Errorf("attribute %s collides with a generated member", attr.Name)
		}
		if attr.Mutable {
			return TypeSpec{}, fmt.Errorf("attribute %s is writable", attr.Name)
		}
		typ := strings.TrimSpace(attr.Type)
		if typ == "" && attr.GoType != nil {
			typ = attr.GoType.String()
		}
		storage := storageName(attr.Name, used)
		used[storage] = true
		spec.Fields = append(spec.Fields, Field{
			Name:     storage,
			Accessor: attr.Name,
			Type:     typ,
			GoType:   attr.GoType,
		})
		spec.Params = append(spec.Params, Param{Name: storage, Type: typ})
		spec.Members = append(spec.Members, Member{
			Name:      attr.Name,
			Kind:      MemberAccessor,
			Signature: "func() " + typ,
		})
	}
	iface := c.Name
	spec.Members = append(spec.Members,
		Member{Name: MemberEqual, Kind: MemberTypedEquality, Signature: "func(other " + iface + ") bool"},
		Member{Name: MemberEquals, Kind: MemberGenericEquality, Signature: "func(other any) bool"},
		Member{Name: MemberHash, Kind: MemberHashCode, Signature: "func() uint64"},
		Member{Name: MemberEqualOp, Kind: MemberOperator, Signature: "func(a, b *" + typeName + ") bool"},
		Member{Name: MemberNotEqualOp, Kind: MemberOperator, Signature: "func(a, b *" + typeName + ") bool"},
	)
	return spec, nil
}

// storageName derives the unexported field name for an accessor. Keywords,
// names equal to the accessor, generated locals and duplicates get a trailing
// underscore.
func storageName(accessor string, used map[string]bool) string {
	r, size := utf8.DecodeRuneInString(accessor)
	name := string(unicode.ToLower(r)) + accessor[size:]
	for token.IsKeyword(name) || name == accessor || reservedStorage[name] || used[name] {
		name += "_"
	}
	return name
}

func collectImports(c *contract.Contract) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(*contract.Contract)
	visited := map[*contract.Contract]bool{}
	walk = func(cur *contract.Contract) {
		if cur == nil || visited[cur] {
			return
		}
		visited[cur] = true
		for _, parent := range cur.Extends {
			walk(parent)
		}
		for _, spec := range cur.Imports {
			if !seen[spec] {
				seen[spec] = true
				out = append(out, spec)
			}
		}
	}
	walk(c)
	return out
}

// Attribute reports the field backing accessor.
func (s TypeSpec) Attribute(accessor string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Accessor == accessor {
			return f, true
		}
	}
	return Field{}, false
}

// Signature fingerprints the contract interface the spec implements: the
// ordered accessor list with types.
func (s TypeSpec) Signature() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Accessor + " " + f.Type
	}
	return strings.Join(parts, ";")
}
