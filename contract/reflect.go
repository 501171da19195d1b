package contract

import (
	"fmt"
	"path"
	"reflect"
	"strings"
)

// FromInterface builds a contract from a named Go interface type, for example
// reflect.TypeOf((*Point)(nil)).Elem(). Go reports interface methods sorted
// by name with embedded interfaces already flattened, so the attribute order
// is lexical and no ancestors are recorded.
func FromInterface(t reflect.Type) (*Contract, error) {
	if t == nil {
		return nil, fmt.Errorf("contract: interface type is nil")
	}
	if t.Kind() != reflect.Interface {
		return nil, fmt.Errorf("contract: %s is a %s, not an interface", t, t.Kind())
	}
	if t.Name() == "" {
		return nil, fmt.Errorf("contract: %s must be a named interface", t)
	}
	c := &Contract{
		Name:   t.Name(),
		Source: t.String(),
	}
	if pkgPath := t.PkgPath(); pkgPath != "" {
		c.Package = path.Base(pkgPath)
	}
	index := map[string]int{}
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		ft := method.Type
		switch {
		case ft.NumIn() == 0 && ft.NumOut() == 1:
			if pos, exists := index[method.Name]; exists {
				c.Attributes[pos].Type = ft.Out(0).String()
				c.Attributes[pos].GoType = ft.Out(0)
				continue
			}
			index[method.Name] = len(c.Attributes)
			c.Attributes = append(c.Attributes, Attribute{
				Name:   method.Name,
				Type:   ft.Out(0).String(),
				GoType: ft.Out(0),
			})
		case ft.NumIn() == 1 && ft.NumOut() == 0 && !ft.IsVariadic() && isSetter(method.Name):
			name := strings.TrimPrefix(method.Name, "Set")
			if pos, exists := index[name]; exists {
				c.Attributes[pos].Mutable = true
				continue
			}
			index[name] = len(c.Attributes)
			c.Attributes = append(c.Attributes, Attribute{
				Name:    name,
				Type:    ft.In(0).String(),
				GoType:  ft.In(0),
				Mutable: true,
			})
		default:
			c.Behaviors = append(c.Behaviors, Member{Name: method.Name, Signature: ft.String()})
		}
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}
