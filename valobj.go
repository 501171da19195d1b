// Package valobj synthesizes immutable value types from contracts.
//
// A contract is a named set of read-only, typed attributes. Implement checks
// that the contract is eligible (no writable attributes, no behavior) and
// emits a concrete type into a host container. The type has one constructor
// argument per attribute, accessors that return storage unchanged, and
// structural equality with a matching hash.
//
//	typ, err := valobj.Implement(&contract.Contract{
//		Name: "Point",
//		Attributes: []contract.Attribute{
//			{Name: "Number", Type: "int"},
//			{Name: "Name", Type: "string"},
//		},
//	})
//	p, _ := typ.New(1, "one")
//	q, _ := typ.New(1, "one")
//	p.Equals(q) // true
package valobj

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/host"
	"github.com/kingrea/valobj/synth"
)

// DefaultContainer is the host container types are emitted into unless
// WithContainerName says otherwise.
const DefaultContainer = "valobj"

// Implementer composes validation and synthesis. It is safe for concurrent
// use.
type Implementer struct {
	cache     *host.Cache
	container string
	factory   synth.TypeFactory
	suffix    string
	log       *zap.Logger
	synth     *synth.Synthesizer

	// results is nil unless WithResultCache was given.
	results *resultCache
}

// Option configures an Implementer.
type Option func(*Implementer)

// WithContainerName selects the host container types are emitted into.
func WithContainerName(name string) Option {
	return func(i *Implementer) {
		if name != "" {
			i.container = name
		}
	}
}

// WithFactory selects the type factory. The default is a ReflectFactory.
func WithFactory(factory synth.TypeFactory) Option {
	return func(i *Implementer) {
		if factory != nil {
			i.factory = factory
		}
	}
}

// WithSuffix changes the suffix appended to contract names.
func WithSuffix(suffix string) Option {
	return func(i *Implementer) { i.suffix = suffix }
}

// WithLogger sets the logger for synthesis events.
func WithLogger(log *zap.Logger) Option {
	return func(i *Implementer) {
		if log != nil {
			i.log = log
		}
	}
}

// WithCache selects the host container cache. The default is host.Default().
func WithCache(cache *host.Cache) Option {
	return func(i *Implementer) {
		if cache != nil {
			i.cache = cache
		}
	}
}

// WithResultCache makes repeated Implement calls for the same contract
// return the type synthesized by the first call. Without it every call
// emits a fresh type.
func WithResultCache() Option {
	return func(i *Implementer) { i.results = newResultCache() }
}

// New returns an Implementer.
func New(opts ...Option) *Implementer {
	i := &Implementer{
		container: DefaultContainer,
		suffix:    synth.DefaultSuffix,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.cache == nil {
		i.cache = host.Default()
	}
	if i.factory == nil {
		i.factory = synth.NewReflectFactory(nil)
	}
	i.synth = synth.New(i.factory, synth.WithSuffix(i.suffix), synth.WithLogger(i.log))
	return i
}

// Container returns the host container this Implementer emits into.
func (i *Implementer) Container() *host.Container {
	return i.cache.GetOrCreate(i.container)
}

// Implement validates c and synthesizes a value type for it. Validation
// failures are returned unchanged; emission failures match
// synth.ErrSynthesis.
func (i *Implementer) Implement(c *contract.Contract) (synth.Type, error) {
	if err := contract.Validate(c); err != nil {
		i.log.Debug("contract rejected", zap.String("contract", c.QualifiedName()), zap.Error(err))
		return nil, err
	}
	if i.results == nil {
		return i.synthesize(c)
	}
	return i.results.getOrCreate(c, i.synthesize)
}

// ImplementInterface builds a contract from the Go interface type t and
// implements it.
func (i *Implementer) ImplementInterface(t reflect.Type) (synth.Type, error) {
	c, err := contract.FromInterface(t)
	if err != nil {
		return nil, err
	}
	return i.Implement(c)
}

func (i *Implementer) synthesize(c *contract.Contract) (synth.Type, error) {
	return i.synth.Synthesize(c, contract.Inspect(c), i.Container())
}

// resultCache maps a contract description to its synthesized type. The
// lock is held while synthesizing so each contract is emitted once.
type resultCache struct {
	mu    sync.Mutex
	types map[*contract.Contract]synth.Type
}

func newResultCache() *resultCache {
	return &resultCache{types: map[*contract.Contract]synth.Type{}}
}

func (r *resultCache) getOrCreate(c *contract.Contract, create func(*contract.Contract) (synth.Type, error)) (synth.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if typ, ok := r.types[c]; ok {
		return typ, nil
	}
	typ, err := create(c)
	if err != nil {
		return nil, err
	}
	r.types[c] = typ
	return typ, nil
}

var defaultImplementer = sync.OnceValue(func() *Implementer { return New() })

// Default returns the process-wide Implementer used by Implement.
func Default() *Implementer {
	return defaultImplementer()
}

// Implement validates and synthesizes c with the default Implementer.
func Implement(c *contract.Contract) (synth.Type, error) {
	return Default().Implement(c)
}

// ImplementInterface implements the Go interface type t with the default
// Implementer. Pass the interface type, e.g.
// reflect.TypeOf((*Point)(nil)).Elem().
func ImplementInterface(t reflect.Type) (synth.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("valobj: interface type is nil")
	}
	return Default().ImplementInterface(t)
}
