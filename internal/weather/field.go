package weather

import (
	"errors"
	"fmt"
)

// ErrForceValid is returned when a caller tries to mark a field valid without
// giving it a value.
var ErrForceValid = errors.New("cannot force field back to valid without real data")

// FieldState is the observable state of a Field.
type FieldState uint8

const (
	FieldAbsent FieldState = iota
	FieldValid
	FieldErrored
)

func (s FieldState) String() string {
	switch s {
	case FieldValid:
		return "valid"
	case FieldErrored:
		return "errored"
	default:
		return "absent"
	}
}

// Field holds one observed quantity. It is absent until a value is set,
// valid while it holds a value and is not flagged, and errored when a value
// was attempted but rejected.
//
// The error flag and the stored value are tracked separately: flagging a
// field hides its value, and clearing the flag again exposes the last value.
type Field[T any] struct {
	value   T
	has     bool
	errored bool
}

// NewErroredField returns a field that stays errored until a value is set.
// Used for fields a record is meaningless without.
func NewErroredField[T any]() Field[T] {
	return Field[T]{errored: true}
}

// Set stores v and clears the error flag.
func (f *Field[T]) Set(v T) {
	f.value = v
	f.has = true
	f.errored = false
}

// Value returns the stored value and true only when the field is valid.
func (f *Field[T]) Value() (T, bool) {
	if !f.Valid() {
		var zero T
		return zero, false
	}
	return f.value, true
}

// Valid reports whether the field holds a value and is not errored.
func (f *Field[T]) Valid() bool {
	return f.has && !f.errored
}

// Errored reports whether the field is flagged as errored.
func (f *Field[T]) Errored() bool {
	return f.errored
}

// SetErrored sets or clears the error flag without touching the stored value.
func (f *Field[T]) SetErrored(errored bool) {
	f.errored = errored
}

// SetValid(false) discards the stored value and the error flag, returning the
// field to absent. SetValid(true) is always rejected; use Set.
func (f *Field[T]) SetValid(valid bool) error {
	if valid {
		return ErrForceValid
	}
	f.Clear()
	return nil
}

// Clear returns the field to absent.
func (f *Field[T]) Clear() {
	var zero T
	f.value = zero
	f.has = false
	f.errored = false
}

// State reports the field's state. The error flag wins over a stored value.
func (f *Field[T]) State() FieldState {
	switch {
	case f.errored:
		return FieldErrored
	case f.has:
		return FieldValid
	default:
		return FieldAbsent
	}
}

func (f *Field[T]) String() string {
	v, ok := f.Value()
	if !ok {
		return "<nil>"
	}
	return fmt.Sprint(v)
}

// MapField applies fn to f's value and returns a new field carrying the
// result. fn receives ok=false when f has no usable value and must report
// whether its result is present. An errored field is returned errored
// without calling fn.
func MapField[T, U any](f *Field[T], fn func(v T, ok bool) (U, bool)) Field[U] {
	if f.Errored() {
		return Field[U]{errored: true}
	}
	var out Field[U]
	if u, ok := fn(f.Value()); ok {
		out.Set(u)
	}
	return out
}

// Derived is a read/write view over a source Field through a pair of
// transforms. It has no state of its own and must not outlive its source.
type Derived[T any] struct {
	source  *Field[T]
	forward func(T) T
	inverse func(T) T
}

// NewDerived builds a view over source. Either transform may be nil, in which
// case reading (forward) or writing (inverse) the view panics.
func NewDerived[T any](source *Field[T], forward, inverse func(T) T) *Derived[T] {
	return &Derived[T]{source: source, forward: forward, inverse: inverse}
}

// NewConversion builds a linear unit conversion: reads multiply the source
// value by factor, writes divide by it.
func NewConversion(source *Field[float64], factor float64) *Derived[float64] {
	return NewDerived(source,
		func(v float64) float64 { return v * factor },
		func(v float64) float64 { return v / factor },
	)
}

func (d *Derived[T]) Valid() bool { return d.source.Valid() }
func (d *Derived[T]) Errored() bool { return d.source.Errored() }
func (d *Derived[T]) SetErrored(errored bool) { d.source.SetErrored(errored) }
func (d *Derived[T]) SetValid(valid bool) error {
	return d.source.SetValid(valid)
}
func (d *Derived[T]) State() FieldState { return d.source.State() }

// Value returns the transformed source value.
func (d *Derived[T]) Value() (T, bool) {
	if d.forward == nil {
		panic("weather: cannot read derived field without a forward transform")
	}
	v, ok := d.source.Value()
	if !ok {
		return v, false
	}
	return d.forward(v), true
}

// Set stores the inverse-transformed value in the source field.
func (d *Derived[T]) Set(v T) {
	if d.inverse == nil {
		panic("weather: cannot write derived field without an inverse transform")
	}
	d.source.Set(d.inverse(v))
}
