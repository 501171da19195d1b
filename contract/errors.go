package contract

import (
	"errors"
	"fmt"
)

// Kind identifies why a contract is not eligible for synthesis.
type Kind string

const (
	// KindMutableAttribute is reported when a contract declares a writable attribute.
	KindMutableAttribute Kind = "MUTABLE_ATTRIBUTE_NOT_ALLOWED"
	// KindUnsupportedBehavior is reported when a contract declares a behavior member.
	KindUnsupportedBehavior Kind = "UNSUPPORTED_BEHAVIOR_MEMBER"
)

var (
	// ErrMutableAttribute matches validation errors of KindMutableAttribute.
	ErrMutableAttribute = errors.New("contract: mutable attribute not allowed")
	// ErrUnsupportedBehavior matches validation errors of KindUnsupportedBehavior.
	ErrUnsupportedBehavior = errors.New("contract: unsupported behavior member")
)

// ValidationError is returned by Validate.
type ValidationError struct {
	Kind     Kind
	Contract string
	// Member names the offending attribute or behavior member.
	Member string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMutableAttribute:
		return fmt.Sprintf("contract %s: attribute %s is writable; value objects must be immutable", e.Contract, e.Member)
	case KindUnsupportedBehavior:
		return fmt.Sprintf("contract %s: member %s is a method; only read-only attributes are supported", e.Contract, e.Member)
	default:
		return fmt.Sprintf("contract %s: %s", e.Contract, e.Kind)
	}
}

// Is lets errors.Is match the sentinel of the error's kind.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrMutableAttribute:
		return e.Kind == KindMutableAttribute
	case ErrUnsupportedBehavior:
		return e.Kind == KindUnsupportedBehavior
	}
	return false
}

// KindOf returns the validation kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return "", false
}
