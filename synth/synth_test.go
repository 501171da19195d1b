package synth

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/host"
)

func pointContract() *contract.Contract {
	return &contract.Contract{
		Name: "Point",
		Attributes: []contract.Attribute{
			{Name: "Number", Type: "int"},
			{Name: "Name", Type: "string"},
		},
	}
}

type factoryCase struct {
	name    string
	factory func() TypeFactory
}

func factories() []factoryCase {
	return []factoryCase{
		{name: "reflect", factory: func() TypeFactory { return NewReflectFactory(nil) }},
		{name: "interpreted", factory: func() TypeFactory { return NewInterpretedFactory() }},
	}
}

func synthesize(t *testing.T, factory TypeFactory, c *contract.Contract, containerName string) Type {
	t.Helper()
	container := host.NewCache().GetOrCreate(containerName)
	typ, err := New(factory).Synthesize(c, contract.Inspect(c), container)
	if err != nil {
		t.Fatalf("synthesize %s: %v", c.Name, err)
	}
	return typ
}

func mustNew(t *testing.T, typ Type, args ...any) Value {
	t.Helper()
	v, err := typ.New(args...)
	if err != nil {
		t.Fatalf("new %s: %v", typ.Name(), err)
	}
	return v
}

func TestPlanLaysOutStorageAndMembers(t *testing.T) {
	c := pointContract()
	spec, err := Plan("PointValue", c, contract.Inspect(c))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(spec.Fields) != 2 || spec.Fields[0].Name != "number" || spec.Fields[1].Name != "name" {
		t.Fatalf("unexpected fields %+v", spec.Fields)
	}
	if spec.Params[0] != (Param{Name: "number", Type: "int"}) || spec.Params[1] != (Param{Name: "name", Type: "string"}) {
		t.Fatalf("unexpected params %+v", spec.Params)
	}
	var names []string
	for _, m := range spec.Members {
		names = append(names, m.Name)
	}
	want := []string{"Number", "Name", "Equal", "Equals", "Hash", "EqualOp", "NotEqualOp"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("members=%v want %v", names, want)
	}
	if spec.Signature() != "Number int;Name string" {
		t.Fatalf("signature=%q", spec.Signature())
	}
}

func TestStorageNamesAvoidKeywordsAndLocals(t *testing.T) {
	tests := []struct {
		accessor string
		want     string
	}{
		{accessor: "Type", want: "type_"},
		{accessor: "X", want: "x_"},
		{accessor: "V", want: "v_"},
		{accessor: "URL", want: "uRL"},
		{accessor: "amount", want: "amount_"},
		{accessor: "A", want: "a_"},
		{accessor: "Time", want: "time_"},
	}
	for _, tt := range tests {
		if got := storageName(tt.accessor, map[string]bool{}); got != tt.want {
			t.Fatalf("storageName(%q)=%q want %q", tt.accessor, got, tt.want)
		}
	}
	if got := storageName("Name", map[string]bool{"name": true}); got != "name_" {
		t.Fatalf("duplicate storage must be suffixed, got %q", got)
	}
}

func TestPlanRejectsGeneratedMemberNames(t *testing.T) {
	c := &contract.Contract{Name: "Odd", Attributes: []contract.Attribute{{Name: "Hash", Type: "uint64"}}}
	if _, err := Plan("OddValue", c, contract.Inspect(c)); err == nil {
		t.Fatalf("expected collision with generated member")
	}
}

func TestSynthesizeShapeFidelity(t *testing.T) {
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			typ := synthesize(t, fc.factory(), pointContract(), "shape-"+fc.name)
			if typ.Name() != "PointValue" {
				t.Fatalf("name=%q", typ.Name())
			}
			params := typ.Params()
			if len(params) != 2 || params[0].Type != "int" || params[1].Type != "string" {
				t.Fatalf("params=%+v", params)
			}
			v := mustNew(t, typ, 7, "seven")
			if got, ok := v.Get("Number"); !ok || got != 7 {
				t.Fatalf("Number=%v ok=%v", got, ok)
			}
			if got, ok := v.Get("Name"); !ok || got != "seven" {
				t.Fatalf("Name=%v ok=%v", got, ok)
			}
			if _, ok := v.Get("Missing"); ok {
				t.Fatalf("unknown accessor must not resolve")
			}
			if v.String() != "PointValue{Number: 7, Name: seven}" {
				t.Fatalf("string=%q", v.String())
			}
		})
	}
}

func TestEqualityProperties(t *testing.T) {
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			typ := synthesize(t, fc.factory(), pointContract(), "equality-"+fc.name)
			a := mustNew(t, typ, 1, "a")
			b := mustNew(t, typ, 1, "a")
			c := mustNew(t, typ, 2, "a")

			if !a.Equals(a) || !a.Equal(a) {
				t.Fatalf("equality must be reflexive")
			}
			if !a.Equals(b) || !b.Equals(a) {
				t.Fatalf("equality must be symmetric")
			}
			if a.Hash() != b.Hash() {
				t.Fatalf("equal values must hash alike: %d != %d", a.Hash(), b.Hash())
			}
			if a.Equals(c) || a.Equal(c) {
				t.Fatalf("values differing in Number must be unequal")
			}
			if a.Equals(nil) || a.Equal(nil) {
				t.Fatalf("nil is never equal")
			}
			if a.Equals("a") {
				t.Fatalf("foreign values are never equal")
			}
			if !EqualOp(a, b) || NotEqualOp(a, b) {
				t.Fatalf("operators must follow Equals")
			}
			if !EqualOp(nil, nil) || EqualOp(a, nil) || EqualOp(nil, a) || !NotEqualOp(a, nil) {
				t.Fatalf("operators must handle nil")
			}
		})
	}
}

func TestVacuousContract(t *testing.T) {
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			typ := synthesize(t, fc.factory(), &contract.Contract{Name: "Empty"}, "vacuous-"+fc.name)
			if len(typ.Params()) != 0 || len(typ.Fields()) != 0 {
				t.Fatalf("vacuous type has storage: %+v", typ.Fields())
			}
			a := mustNew(t, typ)
			b := mustNew(t, typ)
			if !a.Equals(b) || a.Hash() != b.Hash() {
				t.Fatalf("vacuous values must all be equal")
			}
			if _, err := typ.New(1); err == nil {
				t.Fatalf("vacuous constructor takes no arguments")
			}
		})
	}
}

func TestConstructorChecksArguments(t *testing.T) {
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			typ := synthesize(t, fc.factory(), pointContract(), "args-"+fc.name)
			if _, err := typ.New(1); err == nil {
				t.Fatalf("expected arity error")
			}
			if _, err := typ.New("1", "a"); err == nil {
				t.Fatalf("expected type error")
			}
			if _, err := typ.New(nil, "a"); err == nil {
				t.Fatalf("nil is not an int")
			}
		})
	}
}

func TestTimeAttributesUseTheirOwnEquality(t *testing.T) {
	c := &contract.Contract{
		Name:       "Stamp",
		Imports:    []string{"time"},
		Attributes: []contract.Attribute{{Name: "At", Type: "time.Time"}},
	}
	utc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("plus2", 2*60*60))
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			typ := synthesize(t, fc.factory(), c, "time-"+fc.name)
			a := mustNew(t, typ, utc)
			b := mustNew(t, typ, local)
			if !a.Equals(b) {
				t.Fatalf("same instant in different zones must be equal")
			}
			if a.Hash() != b.Hash() {
				t.Fatalf("equal instants must hash alike")
			}
		})
	}
}

func TestPointerAttributesCompareByIdentity(t *testing.T) {
	resolver := NewTypeResolver()
	resolver.Register("*Money", reflect.TypeOf(&money{}))
	c := &contract.Contract{Name: "Price", Attributes: []contract.Attribute{{Name: "Amount", Type: "*Money"}}}
	typ := synthesize(t, NewReflectFactory(resolver), c, "pointer")
	shared := &money{cents: 5}
	a := mustNew(t, typ, shared)
	b := mustNew(t, typ, shared)
	other := mustNew(t, typ, &money{cents: 5})
	if !a.Equals(b) {
		t.Fatalf("same reference must be equal")
	}
	if a.Equals(other) {
		t.Fatalf("distinct references must be unequal")
	}
	nilValue := mustNew(t, typ, nil)
	if got, _ := nilValue.Get("Amount"); got.(*money) != nil {
		t.Fatalf("nil argument must be stored as nil")
	}
}

type money struct{ cents int }

func TestNonComparableAttributeIsSynthesisFailure(t *testing.T) {
	c := &contract.Contract{Name: "Bag", Attributes: []contract.Attribute{{Name: "Items", Type: "[]string"}}}
	container := host.NewCache().GetOrCreate("bag")
	_, err := New(nil).Synthesize(c, contract.Inspect(c), container)
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected synthesis failure, got %v", err)
	}
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) || synthErr.Type != "BagValue" {
		t.Fatalf("unexpected error %#v", err)
	}
	if _, ok := container.Lookup("BagValue"); ok {
		t.Fatalf("failed synthesis must not declare a type")
	}
	if name, _ := container.UniqueName("BagValue"); name != "BagValue" {
		t.Fatalf("failed synthesis must release its name, got %q", name)
	}
}

func TestSynthesizeSuffixesRepeatedNames(t *testing.T) {
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			container := host.NewCache().GetOrCreate("repeat-" + fc.name)
			s := New(fc.factory())
			c := pointContract()
			first, err := s.Synthesize(c, contract.Inspect(c), container)
			if err != nil {
				t.Fatalf("first: %v", err)
			}
			second, err := s.Synthesize(c, contract.Inspect(c), container)
			if err != nil {
				t.Fatalf("second: %v", err)
			}
			if first.Name() != "PointValue" || second.Name() != "PointValue2" {
				t.Fatalf("names=%s,%s", first.Name(), second.Name())
			}
			a := mustNew(t, first, 1, "a")
			b := mustNew(t, second, 1, "a")
			if a.Equals(b) {
				t.Fatalf("generic equality requires the same synthesized type")
			}
			if !a.Equal(b) {
				t.Fatalf("typed equality holds across types of one contract")
			}
		})
	}
}

func TestInterpretedFactoryRejectsConflictingContract(t *testing.T) {
	container := host.NewCache().GetOrCreate("conflict")
	s := New(NewInterpretedFactory())
	c := pointContract()
	if _, err := s.Synthesize(c, contract.Inspect(c), container); err != nil {
		t.Fatalf("first: %v", err)
	}
	changed := &contract.Contract{Name: "Point", Attributes: []contract.Attribute{{Name: "Number", Type: "int64"}}}
	_, err := s.Synthesize(changed, contract.Inspect(changed), container)
	if !errors.Is(err, ErrSynthesis) || !strings.Contains(err.Error(), "Point") {
		t.Fatalf("expected conflicting contract failure, got %v", err)
	}
}

func TestResolverForms(t *testing.T) {
	r := NewTypeResolver()
	tests := []struct {
		expr string
		want reflect.Type
	}{
		{expr: "int", want: reflect.TypeOf(0)},
		{expr: "*string", want: reflect.TypeOf((*string)(nil))},
		{expr: "[2]byte", want: reflect.TypeOf([2]byte{})},
		{expr: "time.Duration", want: reflect.TypeOf(time.Second)},
	}
	for _, tt := range tests {
		got, err := r.ResolveExpr(tt.expr)
		if err != nil || got != tt.want {
			t.Fatalf("ResolveExpr(%q)=%v,%v want %v", tt.expr, got, err, tt.want)
		}
	}
	for _, expr := range []string{"", "map[string]int", "[]int", "billing.Money", "[x]int"} {
		if _, err := r.ResolveExpr(expr); err == nil {
			t.Fatalf("ResolveExpr(%q) should fail", expr)
		}
	}
}

func TestHashNormalizesNegativeZero(t *testing.T) {
	c := &contract.Contract{Name: "Ratio", Attributes: []contract.Attribute{{Name: "Value", Type: "float64"}}}
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			typ := synthesize(t, fc.factory(), c, "ratio-"+fc.name)
			negZero := 0.0
			negZero = -negZero
			a := mustNew(t, typ, 0.0)
			b := mustNew(t, typ, negZero)
			if !a.Equals(b) || a.Hash() != b.Hash() {
				t.Fatalf("0 and -0 must be equal with equal hashes")
			}
		})
	}
}

func TestStorageNamesDoNotShadowConstructorLocals(t *testing.T) {
	tests := []struct {
		name string
		c    *contract.Contract
		args []any
	}{
		{
			name: "pair",
			c: &contract.Contract{Name: "Pair", Attributes: []contract.Attribute{
				{Name: "A", Type: "int"},
				{Name: "B", Type: "int"},
			}},
			args: []any{1, 2},
		},
		{
			name: "clock",
			c: &contract.Contract{Name: "Clock", Imports: []string{"time"}, Attributes: []contract.Attribute{
				{Name: "Time", Type: "time.Time"},
				{Name: "At", Type: "time.Time"},
			}},
			args: []any{time.Unix(10, 0), time.Unix(20, 0)},
		},
	}
	for _, tt := range tests {
		for _, fc := range factories() {
			t.Run(tt.name+"/"+fc.name, func(t *testing.T) {
				typ := synthesize(t, fc.factory(), tt.c, "locals-"+tt.name+"-"+fc.name)
				v := mustNew(t, typ, tt.args...)
				for i, attr := range tt.c.Attributes {
					got, ok := v.Get(attr.Name)
					if !ok {
						t.Fatalf("attribute %s missing", attr.Name)
					}
					if !reflect.DeepEqual(got, tt.args[i]) {
						t.Fatalf("%s=%v want %v", attr.Name, got, tt.args[i])
					}
				}
				if !v.Equals(mustNew(t, typ, tt.args...)) {
					t.Fatalf("equal arguments must give equal values")
				}
			})
		}
	}
}

func TestSynthesizeSeveralContractsInOneContainer(t *testing.T) {
	stamp := &contract.Contract{
		Name:       "Stamp",
		Imports:    []string{"time"},
		Attributes: []contract.Attribute{{Name: "At", Type: "time.Time"}},
	}
	for _, fc := range factories() {
		t.Run(fc.name, func(t *testing.T) {
			container := host.NewCache().GetOrCreate("several-" + fc.name)
			s := New(fc.factory())
			var names []string
			for _, c := range []*contract.Contract{pointContract(), stamp, pointContract(), stamp} {
				typ, err := s.Synthesize(c, contract.Inspect(c), container)
				if err != nil {
					t.Fatalf("synthesize %s: %v", c.Name, err)
				}
				names = append(names, typ.Name())
			}
			want := []string{"PointValue", "StampValue", "PointValue2", "StampValue2"}
			if !reflect.DeepEqual(names, want) {
				t.Fatalf("names=%v want %v", names, want)
			}
		})
	}
}

type window struct{ marks [2]time.Time }

func TestHashWalksArraysOfUnexportedTimes(t *testing.T) {
	resolver := NewTypeResolver()
	resolver.Register("Window", reflect.TypeOf(window{}))
	c := &contract.Contract{Name: "Span", Attributes: []contract.Attribute{{Name: "Window", Type: "Window"}}}
	typ := synthesize(t, NewReflectFactory(resolver), c, "window")
	w := window{marks: [2]time.Time{time.Unix(1, 0), time.Unix(2, 0)}}
	a := mustNew(t, typ, w)
	b := mustNew(t, typ, w)
	if !a.Equals(b) || a.Hash() != b.Hash() {
		t.Fatalf("identical windows must be equal with equal hashes")
	}
}

type counter struct{ n int }

func (c *counter) Hash() uint64 { return uint64(c.n) }

func TestPointerHashIgnoresPointee(t *testing.T) {
	resolver := NewTypeResolver()
	resolver.Register("*Counter", reflect.TypeOf(&counter{}))
	c := &contract.Contract{Name: "Tally", Attributes: []contract.Attribute{{Name: "Counter", Type: "*Counter"}}}
	typ := synthesize(t, NewReflectFactory(resolver), c, "tally")
	shared := &counter{n: 1}
	v := mustNew(t, typ, shared)
	before := v.Hash()
	shared.n = 99
	if v.Hash() != before {
		t.Fatalf("hash must not follow the pointee")
	}
	if mustNew(t, typ, nil).Hash() != mustNew(t, typ, (*counter)(nil)).Hash() {
		t.Fatalf("nil references must hash alike")
	}
}
