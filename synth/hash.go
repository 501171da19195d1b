package synth

import (
	"encoding/binary"
	"math"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	hashSeed       uint64 = 17
	hashMultiplier uint64 = 31
)

// combineHashes folds field hashes in order: h = 17, then h = h*31 + f.
func combineHashes(fields []uint64) uint64 {
	h := hashSeed
	for _, f := range fields {
		h = h*hashMultiplier + f
	}
	return h
}

type hasher interface{ Hash() uint64 }

var timeType = reflect.TypeOf(time.Time{})

// hashField hashes one attribute value consistently with fieldsEqual: two
// values fieldsEqual reports equal always hash the same.
func hashField(v reflect.Value) uint64 {
	if !v.IsValid() {
		return 0
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0
		}
		v = v.Elem()
	}
	if isNilable(v.Kind()) && v.IsNil() {
		return 0
	}
	// Pointers compare by identity, so their pointee's Hash is not stable.
	if v.Kind() != reflect.Pointer && v.CanInterface() {
		if h, ok := v.Interface().(hasher); ok {
			return h.Hash()
		}
	}
	if v.Type() == timeType && v.CanInterface() {
		t := v.Interface().(time.Time)
		return mix(uint64(t.UnixNano()))
	}
	if _, ok := equalMethod(v.Type()); ok {
		// Custom equality may treat distinct representations as equal.
		return 0
	}
	d := xxhash.New()
	writeValue(d, v)
	return d.Sum64()
}

func writeValue(d *xxhash.Digest, v reflect.Value) {
	var buf [8]byte
	put := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		_, _ = d.Write(buf[:])
	}
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			put(1)
		} else {
			put(0)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		put(uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		put(v.Uint())
	case reflect.Float32, reflect.Float64:
		put(floatBits(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		put(floatBits(real(c)))
		put(floatBits(imag(c)))
	case reflect.String:
		_, _ = d.WriteString(v.String())
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer, reflect.Func, reflect.Map, reflect.Slice:
		put(uint64(v.Pointer()))
	case reflect.Interface:
		if v.IsNil() {
			put(0)
			return
		}
		writeValue(d, v.Elem())
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			writeValue(d, v.Index(i))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			writeValue(d, v.Field(i))
		}
	}
}

// floatBits normalizes negative zero so 0.0 == -0.0 hash alike.
func floatBits(f float64) uint64 {
	if f == 0 {
		return 0
	}
	return math.Float64bits(f)
}

func mix(u uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u)
	return xxhash.Sum64(buf[:])
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// equalMethod finds a method `Equal(T) bool` on t.
func equalMethod(t reflect.Type) (reflect.Method, bool) {
	m, ok := t.MethodByName("Equal")
	if !ok {
		return reflect.Method{}, false
	}
	mt := m.Type
	if mt.NumIn() != 2 || mt.NumOut() != 1 || mt.Out(0).Kind() != reflect.Bool {
		return reflect.Method{}, false
	}
	if !t.AssignableTo(mt.In(1)) {
		return reflect.Method{}, false
	}
	return m, true
}

// fieldsEqual compares two attribute values: a type's own Equal method wins,
// otherwise Go's == applies. References compare by identity.
func fieldsEqual(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Kind() == reflect.Interface {
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		a, b = a.Elem(), b.Elem()
		if a.Type() != b.Type() {
			return false
		}
	}
	if isNilable(a.Kind()) && (a.IsNil() || b.IsNil()) {
		return a.IsNil() && b.IsNil()
	}
	if m, ok := equalMethod(a.Type()); ok {
		out := m.Func.Call([]reflect.Value{a, b})
		return out[0].Bool()
	}
	if !a.Type().Comparable() {
		return false
	}
	return safeEqual(a, b)
}

// safeEqual reports a == b, treating a runtime comparison panic (an
// interface holding an incomparable value) as unequal.
func safeEqual(a, b reflect.Value) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a.Equal(b)
}
