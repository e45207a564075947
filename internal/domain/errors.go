package domain

import (
	"errors"
	"fmt"
)

// 错误类别，配合 errors.Is 使用
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate resource")
	ErrConflict   = errors.New("concurrent modification")

	// ErrStaleVersion 网关层：乐观锁版本不匹配（或行已被删除）
	ErrStaleVersion = errors.New("stale version")
)

// Error 业务错误；Message 可直接返回给调用方
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string // 字段级校验错误
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string, fields map[string]string) error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: fields}
}

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

func Duplicate(msg string, cause error) error {
	return &Error{Kind: ErrDuplicate, Message: msg, Err: cause}
}

func Conflict(msg string, cause error) error {
	return &Error{Kind: ErrConflict, Message: msg, Err: cause}
}

// UniqueViolation 唯一索引冲突，Field 为 "email" 或 "phone_number"
type UniqueViolation struct {
	Field string
	Err   error
}

func (e *UniqueViolation) Error() string {
	if e.Err != nil {
		return "unique violation on " + e.Field + ": " + e.Err.Error()
	}
	return "unique violation on " + e.Field
}

func (e *UniqueViolation) Unwrap() error { return e.Err }
