package contract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseGoSource reads interface declarations from Go source. Every
// non-generic interface type is a contract:
//   - `Name() T` declares a read-only attribute;
//   - `SetName(T)` makes attribute Name writable;
//   - any other method is a behavior member;
//   - embedded interfaces are ancestors.
//
// Declaration order is preserved. Imports referenced by attribute types are
// carried on the definition.
func ParseGoSource(filename string, src []byte) ([]Definition, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse go source: %w", err)
	}
	imports := fileImports(file)
	var defs []Definition
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok || ts.TypeParams != nil {
				continue
			}
			iface, ok := ts.Type.(*ast.InterfaceType)
			if !ok || isConstraint(iface) {
				continue
			}
			def, err := interfaceDefinition(ts.Name.Name, iface)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fset.Position(ts.Pos()), err)
			}
			def.Package = file.Name.Name
			def.Imports = referencedImports(def, imports)
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func interfaceDefinition(name string, iface *ast.InterfaceType) (Definition, error) {
	def := Definition{Name: name}
	index := map[string]int{}
	for _, field := range iface.Methods.List {
		if len(field.Names) == 0 {
			parent, err := embeddedName(field.Type)
			if err != nil {
				return Definition{}, fmt.Errorf("contract %s: %w", name, err)
			}
			def.Extends = append(def.Extends, parent)
			continue
		}
		fn, ok := field.Type.(*ast.FuncType)
		if !ok {
			continue
		}
		for _, ident := range field.Names {
			method := ident.Name
			params := fieldCount(fn.Params)
			results := fieldCount(fn.Results)
			switch {
			case params == 0 && results == 1:
				typ := types.ExprString(fn.Results.List[0].Type)
				if pos, exists := index[method]; exists {
					def.Attributes[pos].Type = typ
					continue
				}
				index[method] = len(def.Attributes)
				def.Attributes = append(def.Attributes, AttributeDefinition{Name: method, Type: typ})
			case params == 1 && results == 0 && isSetter(method):
				attr := strings.TrimPrefix(method, "Set")
				if pos, exists := index[attr]; exists {
					def.Attributes[pos].Mutable = true
					continue
				}
				index[attr] = len(def.Attributes)
				def.Attributes = append(def.Attributes, AttributeDefinition{
					Name:    attr,
					Type:    types.ExprString(fn.Params.List[0].Type),
					Mutable: true,
				})
			default:
				def.Methods = append(def.Methods, MethodDefinition{Name: method, Signature: types.ExprString(fn)})
			}
		}
	}
	return def, nil
}

func embeddedName(expr ast.Expr) (string, error) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, nil
	case *ast.SelectorExpr:
		return t.Sel.Name, nil
	default:
		return "", fmt.Errorf("unsupported embedded element %s", types.ExprString(expr))
	}
}

// isConstraint reports interfaces that only make sense as type constraints.
func isConstraint(iface *ast.InterfaceType) bool {
	for _, field := range iface.Methods.List {
		if len(field.Names) > 0 {
			continue
		}
		switch field.Type.(type) {
		case *ast.Ident, *ast.SelectorExpr:
		default:
			return true
		}
	}
	return false
}

func fieldCount(list *ast.FieldList) int {
	if list == nil {
		return 0
	}
	count := 0
	for _, field := range list.List {
		if len(field.Names) == 0 {
			count++
			continue
		}
		count += len(field.Names)
	}
	return count
}

func isSetter(method string) bool {
	rest, ok := strings.CutPrefix(method, "Set")
	if !ok || rest == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsUpper(r)
}

// fileImports maps the local package name to its import spec, written as
// "path" or "name path" when the import is renamed.
func fileImports(file *ast.File) map[string]string {
	imports := make(map[string]string, len(file.Imports))
	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := path.Base(importPath)
		entry := importPath
		if spec.Name != nil && spec.Name.Name != name {
			name = spec.Name.Name
			entry = name + " " + importPath
		}
		imports[name] = entry
	}
	return imports
}

func referencedImports(def Definition, imports map[string]string) []string {
	if len(imports) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var used []string
	for _, attr := range def.Attributes {
		for _, qualifier := range TypeQualifiers(attr.Type) {
			entry, ok := imports[qualifier]
			if ok && !seen[entry] {
				seen[entry] = true
				used = append(used, entry)
			}
		}
	}
	sort.Strings(used)
	return used
}

// TypeQualifiers returns the package names used in a type expression, e.g.
// "time" for "map[string]*time.Time".
func TypeQualifiers(expr string) []string {
	tokens := strings.FieldsFunc(expr, func(r rune) bool {
		return r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var qualifiers []string
	for _, tok := range tokens {
		if qualifier, _, ok := strings.Cut(tok, "."); ok && qualifier != "" {
			qualifiers = append(qualifiers, qualifier)
		}
	}
	return qualifiers
}
