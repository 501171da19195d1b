package contract

import (
	"fmt"
	"sort"
	"sync"
)

type catalogEntry struct {
	def    Definition
	source string
}

// Catalog holds loaded definitions by name and links their ancestors.
type Catalog struct {
	mu       sync.RWMutex
	entries  map[string]catalogEntry
	order    []string
	resolved map[string]*Contract
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entries:  map[string]catalogEntry{},
		resolved: map[string]*Contract{},
	}
}

// Add registers a definition. Returns an error if the name already exists.
func (c *Catalog) Add(def Definition, source string) error {
	if err := def.Validate(); err != nil {
		if source != "" {
			return fmt.Errorf("%s: %w", source, err)
		}
		return err
	}
	normalized := def.Normalized()
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, exists := c.entries[normalized.Name]; exists {
		return fmt.Errorf("contract: duplicate contract %s (%s and %s)", normalized.Name, existing.source, source)
	}
	c.entries[normalized.Name] = catalogEntry{def: normalized, source: source}
	c.order = append(c.order, normalized.Name)
	return nil
}

// Names returns a sorted list of registered contract names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the named contract with its ancestors linked. Contracts are
// built once; later calls return the same pointer so diamonds share nodes.
func (c *Catalog) Resolve(name string) (*Contract, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(name, nil)
}

// Contracts resolves every definition in insertion order.
func (c *Catalog) Contracts() ([]*Contract, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Contract, 0, len(c.order))
	for _, name := range c.order {
		resolved, err := c.resolveLocked(name, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (c *Catalog) resolveLocked(name string, stack []string) (*Contract, error) {
	if built, ok := c.resolved[name]; ok {
		return built, nil
	}
	for _, pending := range stack {
		if pending == name {
			return nil, fmt.Errorf("contract: inheritance cycle %v -> %s", stack, name)
		}
	}
	entry, ok := c.entries[name]
	if !ok {
		if len(stack) > 0 {
			return nil, fmt.Errorf("contract %s: unknown ancestor %s", stack[len(stack)-1], name)
		}
		return nil, fmt.Errorf("contract: unknown contract %s", name)
	}
	built := entry.def.contract()
	built.Source = entry.source
	stack = append(stack, name)
	for _, parentName := range entry.def.Extends {
		parent, err := c.resolveLocked(parentName, stack)
		if err != nil {
			return nil, err
		}
		built.Extends = append(built.Extends, parent)
	}
	c.resolved[name] = built
	return built, nil
}
