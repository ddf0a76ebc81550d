package models

import (
	"time"
)

type ErrorCode string

const (
	CodeTriggerNotFound     ErrorCode = "TriggerNotFound"
	CodeClickFailed         ErrorCode = "ClickFailed"
	CodeRevealTimeout       ErrorCode = "RevealTimeout"
	CodeExtractFailed       ErrorCode = "ExtractFailed"
	CodeEmptyValue          ErrorCode = "EmptyValue"
	CodeNavigationTimeout   ErrorCode = "NavigationTimeout"
	CodeNavigationFailure   ErrorCode = "NavigationFailure"
	CodeParseFailure        ErrorCode = "ParseFailure"
	CodePersistenceFailure  ErrorCode = "PersistenceFailure"
	CodeUnexpectedException ErrorCode = "UnexpectedException"
)

// Result is the envelope returned by every fallible extraction step.
// When Success is false, Data is the zero value and Error is set.
type Result[T any] struct {
	Success     bool          `json:"success"`
	Data        T             `json:"data,omitempty"`
	Error       string        `json:"error,omitempty"`
	Code        ErrorCode     `json:"code,omitempty"`
	RequestTime time.Duration `json:"-"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func Fail[T any](code ErrorCode, err error) Result[T] {
	msg := string(code)
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{Success: false, Code: code, Error: msg}
}

// RequestTimeMs returns the round-trip latency in whole milliseconds.
func (r Result[T]) RequestTimeMs() int64 {
	return r.RequestTime.Milliseconds()
}
