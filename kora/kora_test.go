package kora

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperInterceptor struct {
	err error
}

func (u upperInterceptor) Intercept(component string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return strings.ToUpper(component), nil
}

func TestOptional(t *testing.T) {
	t.Run("it should hold a present value", func(t *testing.T) {
		// GIVEN
		o := Of("foo")

		// WHEN
		value, present := o.Get()

		// THEN
		assert.True(t, present)
		assert.Equal(t, "foo", value)
		assert.Equal(t, "foo", o.OrElse("bar"))
	})

	t.Run("it should fall back for an absent value", func(t *testing.T) {
		o := Empty[string]()

		assert.False(t, o.IsPresent())
		assert.Equal(t, "bar", o.OrElse("bar"))
	})
}

func TestPromise(t *testing.T) {
	t.Run("it should read the value when asked, not when created", func(t *testing.T) {
		// GIVEN
		var holder *int
		p := NewPromise(func() *int { return holder })
		v := NewValue(func() *int { return holder })

		// WHEN
		value := 42
		holder = &value

		// THEN
		assert.Equal(t, 42, *p.Get())
		assert.Equal(t, 42, *v.Get())
	})

	t.Run("it should follow a replaced value", func(t *testing.T) {
		// GIVEN
		holder := "first"
		p := NewPromise(func() string { return holder })
		assert.Equal(t, "first", p.Get())

		// WHEN
		holder = "second"

		// THEN
		assert.Equal(t, "second", p.Get())
	})

	t.Run("it should panic when not bound", func(t *testing.T) {
		var p Promise[string]

		assert.Panics(t, func() { p.Get() })
	})
}

func TestIntercept(t *testing.T) {
	t.Run("it should decorate the component", func(t *testing.T) {
		// GIVEN / WHEN
		result, err := Intercept[string]("foo", upperInterceptor{})

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "FOO", result)
	})

	t.Run("it should wrap the interceptor failure", func(t *testing.T) {
		// GIVEN
		boom := errors.New("boom")

		// WHEN
		result, err := Intercept[string]("foo", upperInterceptor{err: boom})

		// THEN
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "foo", result)
	})

	t.Run("it should give the zero value", func(t *testing.T) {
		assert.Nil(t, Zero[*int]())
		assert.Equal(t, "", Zero[string]())
	})
}

func TestTypeRef(t *testing.T) {
	t.Run("it should expose the referenced type", func(t *testing.T) {
		ref := TypeRef[upperInterceptor]{}

		assert.Equal(t, "upperInterceptor", ref.Type().Name())
	})
}
