package contract

import (
	"fmt"
	"strings"
)

// Definition is the declarative, unresolved form of a contract as written in
// a YAML file or recovered from a Go interface declaration. Ancestors are
// referenced by name and linked by a Catalog.
type Definition struct {
	Name       string                `yaml:"name"`
	Package    string                `yaml:"package,omitempty"`
	Imports    []string              `yaml:"imports,omitempty"`
	Extends    []string              `yaml:"extends,omitempty"`
	Attributes []AttributeDefinition `yaml:"attributes,omitempty"`
	Methods    []MethodDefinition    `yaml:"methods,omitempty"`
}

// AttributeDefinition declares one attribute.
type AttributeDefinition struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Mutable bool   `yaml:"mutable,omitempty"`
}

// MethodDefinition declares one behavior member.
type MethodDefinition struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"signature,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def Definition) Normalized() Definition {
	clone := Definition{
		Name:    strings.TrimSpace(def.Name),
		Package: strings.TrimSpace(def.Package),
	}
	for _, imp := range def.Imports {
		if trimmed := strings.TrimSpace(imp); trimmed != "" {
			clone.Imports = append(clone.Imports, trimmed)
		}
	}
	for _, parent := range def.Extends {
		if trimmed := strings.TrimSpace(parent); trimmed != "" {
			clone.Extends = append(clone.Extends, trimmed)
		}
	}
	if len(def.Attributes) > 0 {
		clone.Attributes = make([]AttributeDefinition, len(def.Attributes))
		for i, attr := range def.Attributes {
			clone.Attributes[i] = AttributeDefinition{
				Name:    strings.TrimSpace(attr.Name),
				Type:    strings.TrimSpace(attr.Type),
				Mutable: attr.Mutable,
			}
		}
	}
	if len(def.Methods) > 0 {
		clone.Methods = make([]MethodDefinition, len(def.Methods))
		for i, method := range def.Methods {
			clone.Methods[i] = MethodDefinition{
				Name:      strings.TrimSpace(method.Name),
				Signature: strings.TrimSpace(method.Signature),
			}
		}
	}
	return clone
}

// Validate ensures the definition is well-formed on its own. Ancestor names
// are checked later, when a catalog links them.
func (def Definition) Validate() error {
	normalized := def.Normalized()
	if err := normalized.contract().Check(); err != nil {
		return err
	}
	for idx, parent := range normalized.Extends {
		if parent == normalized.Name {
			return fmt.Errorf("contract %s: extends[%d]: contract cannot extend itself", normalized.Name, idx)
		}
	}
	return nil
}

// contract converts the definition without linking ancestors.
func (def Definition) contract() *Contract {
	c := &Contract{
		Name:    def.Name,
		Package: def.Package,
	}
	if len(def.Imports) > 0 {
		c.Imports = append([]string(nil), def.Imports...)
	}
	for _, attr := range def.Attributes {
		c.Attributes = append(c.Attributes, Attribute{Name: attr.Name, Type: attr.Type, Mutable: attr.Mutable})
	}
	for _, method := range def.Methods {
		c.Behaviors = append(c.Behaviors, Member{Name: method.Name, Signature: method.Signature})
	}
	return c
}
