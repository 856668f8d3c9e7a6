package errcode

import "fmt"

// Err is the error payload returned to API callers.
type Err struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Err) Error() string {
	return fmt.Sprintf("code: %d, msg: %s", e.Code, e.Msg)
}

func NewErr(code int, msg string) *Err {
	return &Err{Code: code, Msg: msg}
}

// NewCustomErr wraps a free-form message with the generic custom code.
func NewCustomErr(msg string) *Err {
	return NewErr(CodeCustom, msg)
}

const (
	CodeOK            = 200
	CodeCustom        = 7000
	CodeInvalidParams = 7001
	CodePrecondition  = 7002
	CodeStateConflict = 7003
	CodeUnauthorized  = 7004
	CodeTransfer      = 7005
	CodeInternal      = 7500
)

var (
	ErrInvalidParams = NewErr(CodeInvalidParams, "invalid params")
	ErrUnexpected    = NewErr(CodeInternal, "server unexpected error")
)
