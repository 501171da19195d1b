// Package synth turns validated contracts into concrete value types.
//
// The Synthesizer plans a TypeSpec (storage layout, constructor order and the
// equality members) and hands it to a TypeFactory that materializes it. Two
// factories are provided: ReflectFactory builds the storage with
// reflect.StructOf and runs equality in the host process, InterpretedFactory
// renders Go source and evaluates it in the container's interpreter.
package synth

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/host"
)

// DefaultSuffix is appended to the contract name to name the synthesized type.
const DefaultSuffix = "Value"

// ErrSynthesis matches every failure raised while materializing a type. It
// is never returned for contracts that fail validation.
var ErrSynthesis = errors.New("synth: internal synthesis failure")

// SynthesisError wraps a factory or container failure.
type SynthesisError struct {
	Contract string
	Type     string
	Err      error
}

func (e *SynthesisError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("synth: implement %s: %v", e.Contract, e.Err)
	}
	return fmt.Sprintf("synth: implement %s as %s: %v", e.Contract, e.Type, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Is matches ErrSynthesis.
func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesis }

// Type is a synthesized value type.
type Type interface {
	// Name is the type name inside its container, e.g. "PointValue".
	Name() string
	Contract() *contract.Contract
	Container() *host.Container
	Spec() TypeSpec
	// Fields lists the private storage in constructor order.
	Fields() []Field
	// Params lists the constructor parameters in attribute order.
	Params() []Param
	// Members lists accessors and the equality members.
	Members() []Member
	// New is the public constructor: one argument per attribute, in order,
	// each assigned to its storage unchanged.
	New(args ...any) (Value, error)
}

// Value is an instance of a synthesized type.
type Value interface {
	Type() Type
	// Get returns the accessor result for the named attribute.
	Get(attribute string) (any, bool)
	// Attributes returns every attribute value in declared order.
	Attributes() []any
	// Equal is the typed comparison: other implements the same contract and
	// every attribute is equal.
	Equal(other Value) bool
	// Equals is the untyped comparison: other is a value of the same
	// synthesized type and Equal holds. Nil is never equal.
	Equals(other any) bool
	// Hash combines every attribute's hash in order. Equal values hash equally.
	Hash() uint64
	String() string
}

// TypeFactory materializes a planned type inside a container.
type TypeFactory interface {
	CreateType(container *host.Container, spec TypeSpec) (Type, error)
}

// Synthesizer plans and emits value types. It holds no state besides its
// configuration and is safe for concurrent use.
type Synthesizer struct {
	factory TypeFactory
	suffix  string
	log     *zap.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSuffix changes the suffix appended to contract names.
func WithSuffix(suffix string) Option {
	return func(s *Synthesizer) { s.suffix = suffix }
}

// WithLogger sets the logger used for emission events.
func WithLogger(log *zap.Logger) Option {
	return func(s *Synthesizer) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a Synthesizer emitting through factory. A nil factory selects
// a ReflectFactory with the default type resolver.
func New(factory TypeFactory, opts ...Option) *Synthesizer {
	if factory == nil {
		factory = NewReflectFactory(nil)
	}
	s := &Synthesizer{factory: factory, suffix: DefaultSuffix, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Factory returns the configured type factory.
func (s *Synthesizer) Factory() TypeFactory { return s.factory }

// Synthesize emits a type implementing c into container. c must already have
// passed contract.Validate and shape must be contract.Inspect(c).
func (s *Synthesizer) Synthesize(c *contract.Contract, shape contract.Shape, container *host.Container) (Type, error) {
	if c == nil {
		return nil, &SynthesisError{Err: fmt.Errorf("contract is nil")}
	}
	if container == nil {
		return nil, &SynthesisError{Contract: c.QualifiedName(), Err: fmt.Errorf("container is nil")}
	}
	name, err := container.UniqueName(c.Name + s.suffix)
	if err != nil {
		return nil, &SynthesisError{Contract: c.QualifiedName(), Err: err}
	}
	spec, err := Plan(name, c, shape)
	if err != nil {
		container.Release(name)
		return nil, &SynthesisError{Contract: c.QualifiedName(), Type: name, Err: err}
	}
	typ, err := s.factory.CreateType(container, spec)
	if err != nil {
		container.Release(name)
		return nil, &SynthesisError{Contract: c.QualifiedName(), Type: name, Err: err}
	}
	s.log.Debug("synthesized type",
		zap.String("contract", c.QualifiedName()),
		zap.String("type", name),
		zap.String("container", container.Name()),
		zap.Int("fields", len(spec.Fields)),
	)
	return typ, nil
}
