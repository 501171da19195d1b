// Package contract describes value-object contracts: named shapes made of
// typed attributes that a synthesized type must implement. Contracts are
// loaded from YAML files, Go interface declarations or live Go interface
// types, inspected into a flat Shape and validated before synthesis.
package contract

import (
	"fmt"
	"go/token"
	"reflect"
	"strings"
)

// Contract is an abstract value shape. It is treated as read-only once it is
// handed to the inspector, validator or synthesizer.
type Contract struct {
	Name    string
	Package string
	// Imports lists the import specs attribute types need, each written as
	// "path" or "name path".
	Imports    []string
	Attributes []Attribute
	Behaviors  []Member
	Extends    []*Contract
	// Source records where the contract was loaded from (file path, or the
	// Go type for contracts built from interface values).
	Source string
}

// Attribute is one named, typed slot of a contract.
type Attribute struct {
	Name    string
	Type    string
	Mutable bool
	// GoType is set when the attribute came from a live Go interface and the
	// concrete type is already known.
	GoType reflect.Type
}

// Member is a behavior member declared on a contract.
type Member struct {
	Name      string
	Signature string
}

// QualifiedName returns package.Name, or Name when no package is set.
func (c *Contract) QualifiedName() string {
	if c == nil {
		return ""
	}
	if c.Package == "" {
		return c.Name
	}
	return c.Package + "." + c.Name
}

func (c *Contract) String() string {
	return c.QualifiedName()
}

// Attribute looks up a directly declared attribute by name.
func (c *Contract) Attribute(name string) (Attribute, bool) {
	for _, attr := range c.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Check reports structural problems of a single declaration: missing or
// invalid identifiers, duplicate attribute names and empty types. Loaders
// call it so malformed descriptions never reach validation or synthesis.
func (c *Contract) Check() error {
	if c == nil {
		return fmt.Errorf("contract: description is nil")
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("contract: name is required")
	}
	if !token.IsIdentifier(name) {
		return fmt.Errorf("contract: name %q is not a Go identifier", name)
	}
	if c.Package != "" && !token.IsIdentifier(c.Package) {
		return fmt.Errorf("contract %s: package %q is not a Go identifier", name, c.Package)
	}
	seen := make(map[string]struct{}, len(c.Attributes))
	for idx, attr := range c.Attributes {
		if !token.IsIdentifier(attr.Name) {
			return fmt.Errorf("contract %s: attributes[%d]: name %q is not a Go identifier", name, idx, attr.Name)
		}
		if strings.TrimSpace(attr.Type) == "" && attr.GoType == nil {
			return fmt.Errorf("contract %s: attributes[%d]: type is required for %s", name, idx, attr.Name)
		}
		if _, exists := seen[attr.Name]; exists {
			return fmt.Errorf("contract %s: attributes[%d]: duplicate attribute %s", name, idx, attr.Name)
		}
		seen[attr.Name] = struct{}{}
	}
	for idx, member := range c.Behaviors {
		if strings.TrimSpace(member.Name) == "" {
			return fmt.Errorf("contract %s: methods[%d]: name is required", name, idx)
		}
	}
	for idx, parent := range c.Extends {
		if parent == nil {
			return fmt.Errorf("contract %s: extends[%d] is unresolved", name, idx)
		}
	}
	return nil
}
