// Package rterrors defines the stable error taxonomy shared by every
// component of the runtime: input errors, authorization errors, resolution
// errors, handler errors, storage errors, timeout/cancellation, and contract
// (schema) errors. Every error surfaced across the tool boundary carries one
// of the Code constants so callers can branch on failure class without
// string matching.
package rterrors

import (
	"errors"
	"fmt"
)

// Code is a stable, transport-independent error code.
type Code string

// Error codes recognized across the tool boundary (spec.md §6, §7).
const (
	CodeToolNotFound     Code = "TOOL_NOT_FOUND"
	CodeParamInvalid     Code = "TOOL_PARAM_INVALID"
	CodeExecutionError   Code = "TOOL_EXECUTION_ERROR"
	CodeBlocked          Code = "BLOCKED"
	CodeTimeout          Code = "TIMEOUT"
	CodeCancelled        Code = "CANCELLED"
	CodeContractError    Code = "CONTRACT_ERROR"
	CodeStorageIO        Code = "storage_io"
	CodeStorageSchema    Code = "storage_schema_mismatch"
	CodeStorageDimension Code = "storage_dimension_mismatch"
)

type (
	// InputError reports a missing required parameter, a type mismatch, or
	// an out-of-range value. Never retried by the kernel.
	InputError struct {
		Field string
		Msg   string
	}

	// AuthorizationError reports a denied permission check. Never retried.
	AuthorizationError struct {
		Skill  string
		Tool   string
		Grants []string
	}

	// ResolutionError reports that no such tool or skill exists.
	ResolutionError struct {
		Name string
	}

	// HandlerError wraps a panic or returned error from user-supplied
	// handler code. The original error is kept for logging but is never
	// surfaced verbatim to the caller.
	HandlerError struct {
		Tool string
		Err  error
	}

	// StorageError reports a native-bridge I/O or schema failure.
	StorageError struct {
		Op   string
		Code Code
		Err  error
	}

	// TimeoutError reports that a per-call execution timeout elapsed.
	TimeoutError struct {
		Tool    string
		Elapsed string
	}

	// ContractError reports that a payload failed JSON-schema validation.
	// Fatal to the operation that produced it; JSONPointer locates the
	// first offending field.
	ContractError struct {
		Schema     string
		JSONPointer string
		Msg        string
	}
)

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Msg)
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("skill %q not authorized for tool %q (grants=%v)", e.Skill, e.Tool, e.Grants)
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no such tool or skill: %q", e.Name)
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %q failed: %v", e.Tool, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed (%s): %v", e.Op, e.Code, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %q exceeded execution timeout after %s", e.Tool, e.Elapsed)
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("payload failed schema %q at %s: %s", e.Schema, e.JSONPointer, e.Msg)
}

// CodeOf maps any error produced by this package (or a plain error) to its
// stable Code. Unrecognized errors map to CodeExecutionError.
func CodeOf(err error) Code {
	var (
		inputErr *InputError
		authErr  *AuthorizationError
		resErr   *ResolutionError
		hErr     *HandlerError
		stErr    *StorageError
		toErr    *TimeoutError
		cErr     *ContractError
	)
	switch {
	case errors.As(err, &inputErr):
		return CodeParamInvalid
	case errors.As(err, &authErr):
		return CodeBlocked
	case errors.As(err, &resErr):
		return CodeToolNotFound
	case errors.As(err, &toErr):
		return CodeTimeout
	case errors.As(err, &cErr):
		return CodeContractError
	case errors.As(err, &stErr):
		return stErr.Code
	case errors.As(err, &hErr):
		return CodeExecutionError
	default:
		return CodeExecutionError
	}
}
