// Package testutil provides the fluent assertion helper used across this
// codebase's table-driven tests.
package testutil

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// Assert provides fluent assertions bound to one *testing.T.
type Assert struct {
	t *testing.T
}

// NewAssert creates a new Assert instance.
func NewAssert(t *testing.T) *Assert {
	return &Assert{t: t}
}

// Equal asserts that actual equals expected.
func (a *Assert) Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	a.t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Not equal%s:\nExpected: %v\nActual: %v", msg, expected, actual)
	}
}

// NotEqual asserts that actual does not equal expected.
func (a *Assert) NotEqual(expected, actual interface{}, msgAndArgs ...interface{}) {
	a.t.Helper()
	if reflect.DeepEqual(expected, actual) {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Should not be equal%s: %v", msg, actual)
	}
}

// Nil asserts that the value is nil.
func (a *Assert) Nil(value interface{}, msgAndArgs ...interface{}) {
	a.t.Helper()
	if value != nil && !reflect.ValueOf(value).IsNil() {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected nil%s, got: %v", msg, value)
	}
}

// NotNil asserts that the value is not nil.
func (a *Assert) NotNil(value interface{}, msgAndArgs ...interface{}) {
	a.t.Helper()
	if value == nil || reflect.ValueOf(value).IsNil() {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected not nil%s", msg)
	}
}

// True asserts that the value is true.
func (a *Assert) True(value bool, msgAndArgs ...interface{}) {
	a.t.Helper()
	if !value {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected true%s", msg)
	}
}

// False asserts that the value is false.
func (a *Assert) False(value bool, msgAndArgs ...interface{}) {
	a.t.Helper()
	if value {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected false%s", msg)
	}
}

// NoError asserts that err is nil.
func (a *Assert) NoError(err error, msgAndArgs ...interface{}) {
	a.t.Helper()
	if err != nil {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Unexpected error%s: %v", msg, err)
	}
}

// Error asserts that err is not nil.
func (a *Assert) Error(err error, msgAndArgs ...interface{}) {
	a.t.Helper()
	if err == nil {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected error%s", msg)
	}
}

// ErrorContains asserts that err contains the expected substring.
func (a *Assert) ErrorContains(err error, contains string, msgAndArgs ...interface{}) {
	a.t.Helper()
	if err == nil {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected error containing %q%s, got nil", contains, msg)
		return
	}
	if !strings.Contains(err.Error(), contains) {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Error %q does not contain %q%s", err.Error(), contains, msg)
	}
}

// Len asserts that the container has the expected length.
func (a *Assert) Len(container interface{}, expected int, msgAndArgs ...interface{}) {
	a.t.Helper()
	v := reflect.ValueOf(container)
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		if v.Len() != expected {
			msg := formatMessage(msgAndArgs...)
			a.t.Errorf("Expected length %d%s, got %d", expected, msg, v.Len())
		}
	default:
		a.t.Errorf("Len not supported for type %T", container)
	}
}

// Empty asserts that the container is empty.
func (a *Assert) Empty(container interface{}, msgAndArgs ...interface{}) {
	a.t.Helper()
	a.Len(container, 0, msgAndArgs...)
}

// Greater asserts that actual > expected.
func (a *Assert) Greater(actual, expected interface{}, msgAndArgs ...interface{}) {
	a.t.Helper()
	if !isGreater(actual, expected) {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected %v to be greater than %v%s", actual, expected, msg)
	}
}

// GreaterOrEqual asserts that actual >= expected.
func (a *Assert) GreaterOrEqual(actual, expected interface{}, msgAndArgs ...interface{}) {
	a.t.Helper()
	if !isGreater(actual, expected) && !reflect.DeepEqual(actual, expected) {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected %v to be greater than or equal to %v%s", actual, expected, msg)
	}
}

// InDelta asserts that actual is within delta of expected.
func (a *Assert) InDelta(expected, actual, delta float64, msgAndArgs ...interface{}) {
	a.t.Helper()
	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}
	if diff > delta {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Expected %v to be within %v of %v%s (actual diff: %v)", actual, delta, expected, msg, diff)
	}
}

// WithinDuration asserts that actual time is within delta of expected.
func (a *Assert) WithinDuration(expected, actual time.Time, delta time.Duration, msgAndArgs ...interface{}) {
	a.t.Helper()
	diff := expected.Sub(actual)
	if diff < 0 {
		diff = -diff
	}
	if diff > delta {
		msg := formatMessage(msgAndArgs...)
		a.t.Errorf("Times differ by %v, expected within %v%s", diff, delta, msg)
	}
}

func formatMessage(msgAndArgs ...interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if s, ok := msgAndArgs[0].(string); ok {
		return " - " + s
	}
	return ""
}

func isGreater(a, b interface{}) bool {
	switch av := a.(type) {
	case int:
		return av > b.(int)
	case int64:
		return av > b.(int64)
	case float64:
		return av > b.(float64)
	case time.Time:
		return av.After(b.(time.Time))
	}
	return false
}
