package synth

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/kingrea/valobj/contract"
)

// SourceOptions controls RenderSource.
type SourceOptions struct {
	// Package is the package clause of the rendered file.
	Package string
	// DeclareContract emits the contract interface next to the type.
	DeclareContract bool
	// Bridges emits the functions the interpreter backend calls from the host.
	Bridges bool
	// Header is written above the package clause.
	Header string
}

type sourceField struct {
	Name     string
	Accessor string
	Type     string
	Time     bool
	Custom   bool
}

func (f sourceField) equalTo(other string) string {
	if f.Time || f.Custom {
		return fmt.Sprintf("v.%s.Equal(%s)", f.Name, other)
	}
	return fmt.Sprintf("v.%s == %s", f.Name, other)
}

type sourceView struct {
	Header     string
	Package    string
	Imports    []string
	Contract   string
	Declare    bool
	Bridges    bool
	Type       string
	Fields     []sourceField
	Params     string
	Inits      string
	FastEqual  string
	IfaceEqual string
	HashLines  []string
	Format     string
	FormatArgs string
}

var sourceTemplate = template.Must(template.New("value").Parse(`{{if .Header}}{{.Header}}

{{end}}package {{.Package}}

import (
{{range .Imports}}	{{.}}
{{end}})
{{if .Declare}}
// {{.Contract}} is the contract {{.Type}} implements.
type {{.Contract}} interface {
{{range .Fields}}	{{.Accessor}}() {{.Type}}
{{end}}}
{{end}}
// {{.Type}} is an immutable {{.Contract}}.
type {{.Type}} struct {
{{range .Fields}}	{{.Name}} {{.Type}}
{{end}}}

// New{{.Type}} returns a {{.Type}} holding the given attributes.
func New{{.Type}}({{.Params}}) *{{.Type}} {
	return &{{.Type}}{ {{- .Inits -}} }
}
{{range .Fields}}
func (v *{{$.Type}}) {{.Accessor}}() {{.Type}} { return v.{{.Name}} }
{{end}}
// Equal reports whether other holds equal attributes.
func (v *{{.Type}}) Equal(other {{.Contract}}) bool {
	if v == nil || isNil{{.Type}}(other) {
		return false
	}
{{- if .Fields}}
	if o, ok := other.(*{{.Type}}); ok {
		return {{.FastEqual}}
	}
{{- end}}
	return {{.IfaceEqual}}
}

// Equals reports whether other is a {{.Type}} with equal attributes.
func (v *{{.Type}}) Equals(other any) bool {
	o, ok := other.(*{{.Type}})
	if !ok || o == nil || v == nil {
		return false
	}
	return v.Equal(o)
}

// Hash combines the attribute hashes in declaration order.
func (v *{{.Type}}) Hash() uint64 {
	if v == nil {
		return 0
	}
	h := uint64(17)
{{range .HashLines}}	{{.}}
{{end}}	return h
}

func (v *{{.Type}}) String() string {
	return fmt.Sprintf({{.Format}}{{.FormatArgs}})
}

// EqualOp{{.Type}} is == for {{.Type}}: two nils are equal, one nil is not.
func EqualOp{{.Type}}(a, b *{{.Type}}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

// NotEqualOp{{.Type}} is != for {{.Type}}.
func NotEqualOp{{.Type}}(a, b *{{.Type}}) bool {
	return !EqualOp{{.Type}}(a, b)
}

func isNil{{.Type}}(x {{.Contract}}) bool {
	if x == nil {
		return true
	}
	if p, ok := x.(*{{.Type}}); ok {
		return p == nil
	}
	return false
}

// hash{{.Type}}Field hashes one attribute consistently with ==: pointers
// by address, negative zero like zero.
func hash{{.Type}}Field(x any) uint64 {
	if x == nil {
		return 0
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() != reflect.Pointer {
		if t, ok := x.(interface{ Hash() uint64 }); ok {
			return t.Hash()
		}
	}
	return hash{{.Type}}Value(rv)
}

func hash{{.Type}}Value(rv reflect.Value) uint64 {
	switch rv.Kind() {
	case reflect.Invalid:
		return 0
	case reflect.Bool:
		if rv.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); f != 0 {
			return math.Float64bits(f)
		}
		return 0
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		return hash{{.Type}}Value(reflect.ValueOf(real(c)))*31 + hash{{.Type}}Value(reflect.ValueOf(imag(c)))
	case reflect.String:
		f := fnv.New64a()
		f.Write([]byte(rv.String()))
		return f.Sum64()
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer, reflect.Func, reflect.Map, reflect.Slice:
		return uint64(rv.Pointer())
	case reflect.Interface:
		if rv.IsNil() {
			return 0
		}
		return hash{{.Type}}Value(rv.Elem())
	case reflect.Array:
		h := uint64(17)
		for i := 0; i < rv.Len(); i++ {
			h = h*31 + hash{{.Type}}Value(rv.Index(i))
		}
		return h
	case reflect.Struct:
		h := uint64(17)
		for i := 0; i < rv.NumField(); i++ {
			h = h*31 + hash{{.Type}}Value(rv.Field(i))
		}
		return h
	}
	return 0
}
{{if .Bridges}}
func bridge{{.Type}}(args []any) *{{.Type}} {
{{range $i, $f := .Fields}}	arg{{$i}}, _ := args[{{$i}}].({{$f.Type}})
{{end}}	return New{{.Type}}({{range $i, $f := .Fields}}{{if $i}}, {{end}}arg{{$i}}{{end}})
}

func bridgeEquals{{.Type}}(a, b []any) bool {
	return bridge{{.Type}}(a).Equals(bridge{{.Type}}(b))
}

func bridgeHash{{.Type}}(a []any) uint64 {
	return bridge{{.Type}}(a).Hash()
}
{{end}}`))

var contractTemplate = template.Must(template.New("contract").Parse(`package {{.Package}}
{{if .Imports}}
import (
{{range .Imports}}	{{.}}
{{end}})
{{end}}
type {{.Contract}} interface {
{{range .Fields}}	{{.Accessor}}() {{.Type}}
{{end}}}
`))

// RenderContract renders only the flattened contract interface of spec.
func RenderContract(spec TypeSpec, pkg string) ([]byte, error) {
	if spec.Contract == nil {
		return nil, fmt.Errorf("render %s: contract is nil", spec.Name)
	}
	if pkg == "" {
		pkg = "main"
	}
	view := sourceView{Package: pkg, Contract: spec.Contract.Name}
	for _, field := range spec.Fields {
		view.Fields = append(view.Fields, sourceField{Name: field.Name, Accessor: field.Accessor, Type: field.Type})
	}
	view.Imports = contractImports(spec)
	var buf bytes.Buffer
	if err := contractTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", spec.Contract.Name, err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("render %s: format: %w", spec.Contract.Name, err)
	}
	return out, nil
}

// RenderSource renders spec as a gofmt-formatted Go file.
func RenderSource(spec TypeSpec, opts SourceOptions) ([]byte, error) {
	if spec.Contract == nil {
		return nil, fmt.Errorf("render %s: contract is nil", spec.Name)
	}
	pkg := opts.Package
	if pkg == "" {
		pkg = "main"
	}
	view := sourceView{
		Header:   opts.Header,
		Package:  pkg,
		Contract: spec.Contract.Name,
		Declare:  opts.DeclareContract,
		Bridges:  opts.Bridges,
		Type:     spec.Name,
	}
	var params, inits, fast, iface, formats, args []string
	for _, field := range spec.Fields {
		sf := sourceField{
			Name:     field.Name,
			Accessor: field.Accessor,
			Type:     field.Type,
			Time:     field.Type == "time.Time" || field.GoType == timeType,
		}
		if !sf.Time && field.GoType != nil {
			_, sf.Custom = equalMethod(field.GoType)
		}
		view.Fields = append(view.Fields, sf)
		params = append(params, field.Name+" "+field.Type)
		inits = append(inits, field.Name+": "+field.Name)
		fast = append(fast, sf.equalTo("o."+field.Name))
		iface = append(iface, sf.equalTo("other."+field.Accessor+"()"))
		switch {
		case sf.Time:
			view.HashLines = append(view.HashLines, fmt.Sprintf("h = h*31 + uint64(v.%s.UnixNano())", field.Name))
		case sf.Custom:
			view.HashLines = append(view.HashLines, "h = h * 31")
		default:
			view.HashLines = append(view.HashLines, fmt.Sprintf("h = h*31 + hash%sField(v.%s)", spec.Name, field.Name))
		}
		formats = append(formats, field.Accessor+": %v")
		args = append(args, "v."+field.Name)
	}
	view.Params = strings.Join(params, ", ")
	view.Inits = strings.Join(inits, ", ")
	view.FastEqual = joinOr(fast, " &&\n\t\t", "true")
	view.IfaceEqual = joinOr(iface, " &&\n\t\t", "true")
	view.Format = fmt.Sprintf("%q", spec.Name+"{"+strings.Join(formats, ", ")+"}")
	if len(args) > 0 {
		view.FormatArgs = ", " + strings.Join(args, ", ")
	}
	view.Imports = sourceImports(spec)

	var buf bytes.Buffer
	if err := sourceTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", spec.Name, err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("render %s: format: %w", spec.Name, err)
	}
	return out, nil
}

func joinOr(parts []string, sep, empty string) string {
	if len(parts) == 0 {
		return empty
	}
	return strings.Join(parts, sep)
}

// helperImports are the packages the generated helpers use.
var helperImports = []string{"fmt", "hash/fnv", "math", "reflect"}

// sourceImports returns quoted import specs: the packages the generated
// helpers use plus the contract imports attribute types reference.
func sourceImports(spec TypeSpec) []string {
	byPath := map[string]string{}
	for _, p := range helperImports {
		byPath[p] = fmt.Sprintf("%q", p)
	}
	return sortedImports(importsUsedBy(spec, byPath))
}

// contractImports returns only the imports the contract interface needs.
func contractImports(spec TypeSpec) []string {
	return sortedImports(importsUsedBy(spec, map[string]string{}))
}

// importsUsedBy adds to byPath every contract import an attribute type
// references, keyed by import path.
func importsUsedBy(spec TypeSpec, byPath map[string]string) map[string]string {
	used := map[string]bool{}
	for _, field := range spec.Fields {
		for _, q := range contract.TypeQualifiers(field.Type) {
			used[q] = true
		}
	}
	for _, entry := range spec.Imports {
		name, importPath := splitImport(entry)
		if !used[name] {
			continue
		}
		if name == path.Base(importPath) {
			byPath[importPath] = fmt.Sprintf("%q", importPath)
		} else {
			byPath[importPath] = fmt.Sprintf("%s %q", name, importPath)
		}
	}
	if used["time"] {
		if _, ok := byPath["time"]; !ok {
			byPath["time"] = `"time"`
		}
	}
	return byPath
}

func sortedImports(byPath map[string]string) []string {
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = byPath[p]
	}
	return out
}

// splitImport reads an import spec written as "path" or "name path".
func splitImport(entry string) (name, importPath string) {
	entry = strings.TrimSpace(entry)
	if n, p, ok := strings.Cut(entry, " "); ok {
		return n, strings.Trim(strings.TrimSpace(p), `"`)
	}
	importPath = strings.Trim(entry, `"`)
	return path.Base(importPath), importPath
}
