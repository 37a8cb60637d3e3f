// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package coderr

// CodeErrorWrapper declares a code+message pair ahead of the cause that
// will eventually be known, for call sites that always wrap an error
// (config parsing, etcd dial failures) rather than sometimes returning the
// bare sentinel.
type CodeErrorWrapper interface {
	Wrap(cause error) CodeError
}

type codeErrorWrapperImpl struct {
	code Code
	msg  string
}

// NewCodeErrorWrapper declares a new wrapper sentinel under the given code.
func NewCodeErrorWrapper(code Code, msg string) CodeErrorWrapper {
	return &codeErrorWrapperImpl{code: code, msg: msg}
}

func (w *codeErrorWrapperImpl) Wrap(cause error) CodeError {
	return &wrappedCodeError{code: w.code, msg: w.msg, cause: cause}
}
