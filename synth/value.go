package synth

import "reflect"

// EqualOp is the equality operator of synthesized types: two nil values are
// equal, a single nil is not, and otherwise generic equality decides.
func EqualOp(a, b Value) bool {
	aNil, bNil := isNilValue(a), isNilValue(b)
	if aNil || bNil {
		return aNil && bNil
	}
	return a.Equals(b)
}

// NotEqualOp is the negation of EqualOp.
func NotEqualOp(a, b Value) bool {
	return !EqualOp(a, b)
}

// isNilValue reports a nil interface or an interface holding a nil pointer.
func isNilValue(v Value) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
