package nexus

import (
	"bytes"
	"encoding/json"
)

// Option models a value the backend may omit, such as the profile of a user
// who never registered. The absent state is first-class instead of a bare nil
// so callers have to handle it explicitly.
type Option[T any] struct {
	value T
	some  bool
}

// Some returns an Option holding v.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, some: true}
}

// None returns the absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// IsSome reports whether the option holds a value.
func (o Option[T]) IsSome() bool { return o.some }

// IsNone reports whether the option is absent.
func (o Option[T]) IsNone() bool { return !o.some }

// Get returns the held value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.some
}

// ValueOr returns the held value, or def when absent.
func (o Option[T]) ValueOr(def T) T {
	if o.some {
		return o.value
	}
	return def
}

// DeepCopy returns the option as-is. Reflection-based copiers cannot reach
// the unexported fields; held values are plain data, so sharing them is safe.
func (o Option[T]) DeepCopy() interface{} { return o }

var jsonNull = []byte("null")

// MarshalJSON encodes the option as the value itself or JSON null.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.some {
		return jsonNull, nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes JSON null as absent and anything else as the value.
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*o = Option[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Option[T]{value: v, some: true}
	return nil
}
