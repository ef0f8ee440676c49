// Copyright (c) 2021 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package errors provides utilities for working with different types errors.
package errors

import (
	"bytes"
	"errors"
	"fmt"
)

// Wrap wraps an error with a message but preserves the type of the error.
func Wrap(err error, msg string) error {
	renamed := errors.New(msg + ": " + err.Error())
	if IsInvalidParams(err) {
		return NewInvalidParamsError(renamed)
	}
	if IsInvalidState(err) {
		return NewInvalidStateError(renamed)
	}
	if IsCorruption(err) {
		return NewCorruptionError(renamed)
	}
	return renamed
}

// Wrapf formats according to a format specifier and uses that string to
// wrap an error while still preserving the type of the error.
func Wrapf(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return Wrap(err, msg)
}

// GetInnerInvalidParamsError returns an inner invalid params error
// if contained by this error, nil otherwise.
func GetInnerInvalidParamsError(err error) error {
	var target invalidParamsError
	if errors.As(err, &target) {
		return target.inner
	}
	return nil
}

type containedError interface {
	InnerError() error
}

type invalidParamsError struct {
	inner error
}

// NewInvalidParamsError creates a new invalid params error. Invalid params
// errors are caused by callers passing arguments that can never succeed.
func NewInvalidParamsError(inner error) error {
	return invalidParamsError{inner}
}

func (e invalidParamsError) Error() string {
	return e.inner.Error()
}

func (e invalidParamsError) InnerError() error {
	return e.inner
}

func (e invalidParamsError) Unwrap() error {
	return e.inner
}

// IsInvalidParams returns true if this is an invalid params error.
func IsInvalidParams(err error) bool {
	return errors.As(err, &invalidParamsError{})
}

type invalidStateError struct {
	inner error
}

// NewInvalidStateError creates a new invalid state error. Invalid state
// errors signal a violated calling contract, e.g. finishing an already
// finished structure, and are never retryable.
func NewInvalidStateError(inner error) error {
	return invalidStateError{inner}
}

func (e invalidStateError) Error() string {
	return e.inner.Error()
}

func (e invalidStateError) InnerError() error {
	return e.inner
}

func (e invalidStateError) Unwrap() error {
	return e.inner
}

// IsInvalidState returns true if this is an invalid state error.
func IsInvalidState(err error) bool {
	return errors.As(err, &invalidStateError{})
}

type corruptionError struct {
	inner error
}

// NewCorruptionError creates a new corruption error, used when persisted
// bytes fail to decode or fail validation.
func NewCorruptionError(inner error) error {
	return corruptionError{inner}
}

func (e corruptionError) Error() string {
	return e.inner.Error()
}

func (e corruptionError) InnerError() error {
	return e.inner
}

func (e corruptionError) Unwrap() error {
	return e.inner
}

// IsCorruption returns true if this is a corruption error.
func IsCorruption(err error) bool {
	return errors.As(err, &corruptionError{})
}

// InnerError returns the packaged inner error if this is an error that
// contains another.
func InnerError(err error) error {
	contained, ok := err.(containedError)
	if !ok {
		return nil
	}
	return contained.InnerError()
}

// MultiError is an immutable error that packages a list of errors.
//
// TODO(xichen): we may want to limit the number of errors included.
type MultiError struct {
	err    error // optimization to avoid allocating a slice for the first error
	errors []error
}

// NewMultiError creates a new MultiError object.
func NewMultiError() MultiError {
	return MultiError{}
}

// Empty returns true if the MultiError has no errors.
func (e MultiError) Empty() bool {
	return e.err == nil
}

func (e MultiError) Error() string {
	if e.err == nil {
		return ""
	}
	if len(e.errors) == 0 {
		return e.err.Error()
	}
	var b bytes.Buffer
	for i := len(e.errors) - 1; i >= 0; i-- {
		b.WriteString(e.errors[i].Error())
		b.WriteString("\n")
	}
	b.WriteString(e.err.Error())
	return b.String()
}

// Errors returns all the errors to inspect individually.
func (e MultiError) Errors() []error {
	if e.err == nil {
		return nil // No errors
	}
	// Need to prepend the first error to result
	// since we avoid allocating array if we don't need it
	// when we accumulate the first error
	result := make([]error, 1+len(e.errors))
	result[0] = e.err
	copy(result[1:], e.errors)
	return result
}

// Add adds an error returns a new MultiError object.
func (e MultiError) Add(err error) MultiError {
	if err == nil {
		return e
	}
	me := e
	if me.err == nil {
		me.err = err
		return me
	}
	me.errors = append(me.errors, err)
	return me
}

// FinalError returns all concatenated error messages if any.
func (e MultiError) FinalError() error {
	if e.err == nil {
		return nil
	}
	if len(e.errors) == 0 {
		return e.err
	}
	return e
}

// LastError returns the last received error if any.
func (e MultiError) LastError() error {
	if e.err == nil {
		return nil
	}
	if len(e.errors) == 0 {
		return e.err
	}
	return e.errors[len(e.errors)-1]
}

// NumErrors returns the total number of errors.
func (e MultiError) NumErrors() int {
	if e.err == nil {
		return 0
	}
	return len(e.errors) + 1
}
