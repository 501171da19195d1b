// Package host keeps the run-only containers synthesized types are emitted
// into. A Cache maps a container name to exactly one Container for the life
// of the process; nothing a container holds is ever written to disk.
package host

import (
	"fmt"
	"go/scanner"
	"go/token"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"testing/fstest"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// SymbolKind classifies a name declared in a container.
type SymbolKind int

const (
	// KindSynthesized marks a type produced by synthesis.
	KindSynthesized SymbolKind = iota
	// KindContract marks a contract declaration evaluated into the container.
	KindContract
	// KindReserved marks a name the host claims for itself.
	KindReserved
)

func (k SymbolKind) String() string {
	switch k {
	case KindSynthesized:
		return "synthesized"
	case KindContract:
		return "contract"
	case KindReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// Symbol is one declared name and what it refers to.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Value any
	// Signature fingerprints contract declarations so a second declaration
	// under the same name can be recognized as identical or conflicting.
	Signature string
}

// Container hosts synthesized types. Symbol registration and interpreter
// evaluation are serialized by the container lock.
type Container struct {
	name string

	mu      sync.Mutex
	symbols map[string]Symbol
	pending map[string]bool
	// burned holds names whose evaluation failed part way; the interpreter
	// may still know some of their declarations, so they are never reused.
	burned map[string]bool
	interp *interp.Interpreter
	// sources backs the interpreter's source filesystem. Every evaluated
	// file gets its own name because the interpreter scopes imports per
	// file name within a package.
	sources fstest.MapFS
	files   int
}

func newContainer(name string) *Container {
	return &Container{
		name:    name,
		symbols: map[string]Symbol{},
		pending: map[string]bool{},
		burned:  map[string]bool{},
		sources: fstest.MapFS{},
	}
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.name
}

// Declare registers a symbol. A name already declared with another kind, or
// a synthesized name declared twice, is a collision.
func (c *Container) Declare(sym Symbol) error {
	if sym.Name == "" {
		return fmt.Errorf("host %s: symbol name is required", c.name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.declareLocked(sym)
}

func (c *Container) declareLocked(sym Symbol) error {
	if existing, ok := c.symbols[sym.Name]; ok {
		if existing.Kind == KindContract && sym.Kind == KindContract && existing.Signature == sym.Signature {
			return nil
		}
		return fmt.Errorf("host %s: %s already declared as %s", c.name, sym.Name, existing.Kind)
	}
	delete(c.pending, sym.Name)
	c.symbols[sym.Name] = sym
	return nil
}

// Lookup returns the symbol declared under name.
func (c *Container) Lookup(name string) (Symbol, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sym, ok := c.symbols[name]
	return sym, ok
}

// Symbols returns every declared symbol sorted by name.
func (c *Container) Symbols() []Symbol {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Symbol, 0, len(c.symbols))
	for _, sym := range c.symbols {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UniqueName claims the first free synthesized name among base, base2,
// base3 and so on. A claimed name stays unavailable until it is declared or
// released. When base itself belongs to a contract or reserved symbol the
// claim fails: synthesized names never shadow host declarations.
func (c *Container) UniqueName(base string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("host %s: type name is required", c.name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.symbols[base]; ok && existing.Kind != KindSynthesized {
		return "", fmt.Errorf("host %s: %s collides with %s declaration", c.name, base, existing.Kind)
	}
	for n := 1; ; n++ {
		candidate := base
		if n > 1 {
			candidate = base + strconv.Itoa(n)
		}
		if _, taken := c.symbols[candidate]; taken {
			continue
		}
		if c.pending[candidate] || c.burned[candidate] {
			continue
		}
		c.pending[candidate] = true
		return candidate, nil
	}
}

// Release gives back a name claimed by UniqueName that was never declared.
func (c *Container) Release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, name)
}

// Eval evaluates Go source in the container's interpreter, creating the
// interpreter with the standard library symbols on first use. Source that
// starts with a package clause is evaluated as a file of its own, so its
// imports never clash with those of earlier files; anything else is
// evaluated as an expression or statement.
func (c *Container) Eval(src string) (reflect.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evalLocked(src)
}

// EnsureDeclared evaluates src and declares sym unless an identical
// contract declaration is already present. The check and the evaluation
// happen under one lock, so concurrent callers evaluate src at most once.
func (c *Container) EnsureDeclared(sym Symbol, src string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.symbols[sym.Name]; ok {
		if existing.Kind == sym.Kind && existing.Signature == sym.Signature {
			return nil
		}
		return fmt.Errorf("host %s: %s already declared as %s", c.name, sym.Name, existing.Kind)
	}
	if _, err := c.evalLocked(src); err != nil {
		return err
	}
	return c.declareLocked(sym)
}

// EvalDeclare evaluates src and, if it succeeds, declares syms in the same
// critical section so no other caller observes half-registered code.
func (c *Container) EvalDeclare(src string, syms ...Symbol) (reflect.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sym := range syms {
		if existing, ok := c.symbols[sym.Name]; ok && !(existing.Kind == KindContract && sym.Kind == KindContract && existing.Signature == sym.Signature) {
			return reflect.Value{}, fmt.Errorf("host %s: %s already declared as %s", c.name, sym.Name, existing.Kind)
		}
	}
	value, err := c.evalLocked(src)
	if err != nil {
		for _, sym := range syms {
			if sym.Kind == KindSynthesized {
				c.burned[sym.Name] = true
			}
		}
		return reflect.Value{}, err
	}
	for _, sym := range syms {
		if err := c.declareLocked(sym); err != nil {
			return reflect.Value{}, err
		}
	}
	return value, nil
}

func (c *Container) evalLocked(src string) (reflect.Value, error) {
	if c.interp == nil {
		if c.sources == nil {
			c.sources = fstest.MapFS{}
		}
		i := interp.New(interp.Options{SourcecodeFilesystem: c.sources})
		if err := i.Use(stdlib.Symbols); err != nil {
			return reflect.Value{}, fmt.Errorf("host %s: load stdlib symbols: %w", c.name, err)
		}
		c.interp = i
	}
	var (
		value reflect.Value
		err   error
	)
	if isFileSource(src) {
		c.files++
		name := "valobj" + strconv.Itoa(c.files) + ".go"
		c.sources[name] = &fstest.MapFile{Data: []byte(src), Mode: 0o644}
		value, err = c.interp.EvalPath(name)
	} else {
		value, err = c.interp.Eval(src)
	}
	if err != nil {
		return reflect.Value{}, fmt.Errorf("host %s: evaluate: %w", c.name, err)
	}
	return value, nil
}

// isFileSource reports whether src starts with a package clause.
func isFileSource(src string) bool {
	var s scanner.Scanner
	fset := token.NewFileSet()
	s.Init(fset.AddFile("", -1, len(src)), []byte(src), nil, 0)
	_, tok, _ := s.Scan()
	return tok == token.PACKAGE
}

// Cache maps container names to containers. The zero value is ready to use.
type Cache struct {
	mu         sync.Mutex
	containers map[string]*Container
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{containers: map[string]*Container{}}
}

// GetOrCreate returns the container registered under name, creating it on
// first use. Concurrent callers for the same name all receive the same
// container and only one is ever constructed.
func (c *Cache) GetOrCreate(name string) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.containers[name]; ok {
		return existing
	}
	if c.containers == nil {
		c.containers = map[string]*Container{}
	}
	created := newContainer(name)
	c.containers[name] = created
	return created
}

// Names returns the names of every container created so far.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.containers))
	for name := range c.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultCache = sync.OnceValue(NewCache)

// Default returns the process-wide cache. It is created on first use and
// lives until the process exits; there is no reset.
func Default() *Cache {
	return defaultCache()
}
