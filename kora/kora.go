// Package kora holds the few types generated composition roots rely on at runtime.
package kora

import (
	"fmt"
	"reflect"
)

type (
	// Optional holds a value that may be absent.
	Optional[T any] struct {
		value   T
		present bool
	}

	// Wrapped is implemented by components exposing an inner value, a claim on T can be
	// satisfied by a component implementing Wrapped[T].
	Wrapped[T any] interface {
		Value() T
	}

	// Promise gives access to a component which may be constructed after the holder of the
	// promise. Get must not be called before the whole graph is constructed.
	Promise[T any] struct {
		get func() T
	}

	// Value gives access to the current value of a component.
	Value[T any] struct {
		get func() T
	}

	// TypeRef stands for the type T itself rather than an instance of it.
	TypeRef[T any] struct{}

	// Interceptor decorates a component once constructed.
	Interceptor[T any] interface {
		Intercept(component T) (T, error)
	}
)

func Of[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func Empty[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) IsPresent() bool {
	return o.present
}

func (o Optional[T]) OrElse(fallback T) T {
	if !o.present {
		return fallback
	}
	return o.value
}

func NewPromise[T any](get func() T) Promise[T] {
	return Promise[T]{get: get}
}

func (p Promise[T]) Get() T {
	if p.get == nil {
		panic(fmt.Sprintf("kora: promise of %T is not bound", *new(T)))
	}
	return p.get()
}

func NewValue[T any](get func() T) Value[T] {
	return Value[T]{get: get}
}

func (v Value[T]) Get() T {
	if v.get == nil {
		panic(fmt.Sprintf("kora: value of %T is not bound", *new(T)))
	}
	return v.get()
}

func (TypeRef[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

// Zero returns the zero value of T, it stands for an absent nullable dependency.
func Zero[T any]() T {
	var zero T
	return zero
}

// Intercept applies the interceptor to the component.
func Intercept[T any](component T, interceptor Interceptor[T]) (T, error) {
	intercepted, err := interceptor.Intercept(component)
	if err != nil {
		return component, fmt.Errorf("interceptor %T failed:\n\t%w", interceptor, err)
	}
	return intercepted, nil
}
