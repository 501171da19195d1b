package contract

import (
	"path/filepath"
	"reflect"
	"testing"
)

const shapesSource = `package shapes

import (
	"time"

	hsh "hash"
)

type Identified interface {
	ID() string
}

type HaveOnlyGetOnlyProperties interface {
	Number() int
	Name() string
}

type HaveASetProperty interface {
	Number() int
	Name() string
	SetName(string)
}

type HaveAMethod interface {
	Number() int
	Name() string
	TryMe()
}

type Stamped interface {
	Identified
	At() time.Time
	Sum() hsh.Hash
}

type Number interface {
	~int | ~int64
}

type Box[T any] interface {
	Value() T
}

type notAnInterface struct{}
`

func TestParseGoSource(t *testing.T) {
	defs, err := ParseGoSource("shapes.go", []byte(shapesSource))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var names []string
	byName := map[string]Definition{}
	for _, def := range defs {
		names = append(names, def.Name)
		byName[def.Name] = def
	}
	wantNames := []string{"Identified", "HaveOnlyGetOnlyProperties", "HaveASetProperty", "HaveAMethod", "Stamped"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Fatalf("names=%v want=%v", names, wantNames)
	}

	getOnly := byName["HaveOnlyGetOnlyProperties"]
	if getOnly.Package != "shapes" {
		t.Fatalf("package=%q", getOnly.Package)
	}
	wantAttrs := []AttributeDefinition{{Name: "Number", Type: "int"}, {Name: "Name", Type: "string"}}
	if !reflect.DeepEqual(getOnly.Attributes, wantAttrs) {
		t.Fatalf("attributes=%+v", getOnly.Attributes)
	}

	setter := byName["HaveASetProperty"]
	if len(setter.Attributes) != 2 || !setter.Attributes[1].Mutable || setter.Attributes[0].Mutable {
		t.Fatalf("setter must mark Name writable: %+v", setter.Attributes)
	}

	method := byName["HaveAMethod"]
	if len(method.Methods) != 1 || method.Methods[0].Name != "TryMe" || method.Methods[0].Signature != "func()" {
		t.Fatalf("unexpected methods %+v", method.Methods)
	}

	stamped := byName["Stamped"]
	if !reflect.DeepEqual(stamped.Extends, []string{"Identified"}) {
		t.Fatalf("extends=%v", stamped.Extends)
	}
	if !reflect.DeepEqual(stamped.Imports, []string{"hsh hash", "time"}) {
		t.Fatalf("imports=%v", stamped.Imports)
	}
}

func TestParseGoSourceSetterBeforeGetter(t *testing.T) {
	src := `package p

type Reversed interface {
	SetName(string)
	Name() string
}
`
	defs, err := ParseGoSource("p.go", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	attrs := defs[0].Attributes
	if len(attrs) != 1 || attrs[0].Name != "Name" || !attrs[0].Mutable || attrs[0].Type != "string" {
		t.Fatalf("unexpected attributes %+v", attrs)
	}
}

func TestLoadFileGoSourceValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapes.go")
	writeFile(t, path, shapesSource)
	report, err := ValidateFile(path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	got := map[string]error{}
	for _, result := range report.Results {
		got[result.Contract.Name] = result.Err
	}
	if got["HaveOnlyGetOnlyProperties"] != nil || got["Stamped"] != nil {
		t.Fatalf("read-only contracts must validate: %v", got)
	}
	if kind, _ := KindOf(got["HaveASetProperty"]); kind != KindMutableAttribute {
		t.Fatalf("HaveASetProperty kind=%s", kind)
	}
	if kind, _ := KindOf(got["HaveAMethod"]); kind != KindUnsupportedBehavior {
		t.Fatalf("HaveAMethod kind=%s", kind)
	}
}

func TestParseGoSourceSyntaxError(t *testing.T) {
	if _, err := ParseGoSource("bad.go", []byte("package p\ntype X interface {")); err == nil {
		t.Fatalf("expected parse error")
	}
}
