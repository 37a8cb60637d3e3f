// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package coderr

import "fmt"

var _ CodeError = &normalCodeError{}

// normalCodeError is actually the leaf error in the error chain, that is to say, the error is generated in our codebase.
type normalCodeError struct {
	code Code
	msg  string
}

func (e *normalCodeError) Error() string {
	return fmt.Sprintf("code:%d, msg:%s", e.code, e.msg)
}

func (e *normalCodeError) Code() Code {
	return e.code
}

func NewNormalizedCodeError(code Code, msg string) CodeError {
	return &normalCodeError{
		code,
		msg,
	}
}

var _ CodeError = &CodeErrorDef{}

// CodeErrorDef is a reusable error sentinel declared once at package scope
// (e.g. `var ErrClusterNotFound = coderr.NewCodeError(coderr.NotFound, "...")`)
// and used directly as an error, or specialized per call site with
// WithCause / WithCausef to attach the failure that triggered it.
type CodeErrorDef struct {
	code Code
	msg  string
}

// NewCodeError declares a new error sentinel under the given code.
func NewCodeError(code Code, msg string) *CodeErrorDef {
	return &CodeErrorDef{code: code, msg: msg}
}

func (e *CodeErrorDef) Error() string {
	return fmt.Sprintf("code:%d, msg:%s", e.code, e.msg)
}

func (e *CodeErrorDef) Code() Code {
	return e.code
}

// WithCause attaches a concrete cause, producing the error actually returned
// to the caller while keeping the sentinel comparable via EqualsByCode.
func (e *CodeErrorDef) WithCause(cause error) CodeError {
	return &wrappedCodeError{code: e.code, msg: e.msg, cause: cause, def: e}
}

// WithCausef is WithCause with a formatted cause message.
func (e *CodeErrorDef) WithCausef(format string, args ...any) CodeError {
	return &wrappedCodeError{code: e.code, msg: e.msg, cause: fmt.Errorf(format, args...), def: e}
}

var _ CodeError = &wrappedCodeError{}

type wrappedCodeError struct {
	code  Code
	msg   string
	cause error
	// def is the sentinel this error was specialized from, nil for errors
	// built by a CodeErrorWrapper.
	def *CodeErrorDef
}

func (e *wrappedCodeError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("code:%d, msg:%s", e.code, e.msg)
	}
	return fmt.Sprintf("code:%d, msg:%s, cause:%v", e.code, e.msg, e.cause)
}

func (e *wrappedCodeError) Code() Code {
	return e.code
}

// wrappedCodeError has no Cause method, so github.com/pkg/errors.Cause
// walks through any errors.Wrap / errors.WithMessage layers around it and
// stops here, at this error's own code.

// Is lets the standard errors package match this error against the
// CodeErrorDef sentinel it was specialized from.
func (e *wrappedCodeError) Is(target error) bool {
	def, ok := target.(*CodeErrorDef)
	return ok && e.def != nil && def == e.def
}

// Unwrap lets the standard errors package reach the underlying cause.
func (e *wrappedCodeError) Unwrap() error {
	return e.cause
}
