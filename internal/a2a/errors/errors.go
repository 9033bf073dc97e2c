// Package errors defines the A2A error taxonomy (kinds, not Go type names),
// a structured Error type preserving cause chains for errors.Is/As, and the
// mappings from taxonomy kind to JSON-RPC error code and HTTP status.
package errors

import (
	"errors"
	"fmt"
)

// Kind is one of the fixed taxonomy members from spec.md §7. Kinds, not
// concrete types, are what callers switch on.
type Kind string

const (
	KindParseError                    Kind = "ParseError"
	KindInvalidRequest                Kind = "InvalidRequest"
	KindMethodNotFound                Kind = "MethodNotFound"
	KindInvalidParams                 Kind = "InvalidParams"
	KindInternalError                 Kind = "InternalError"
	KindTaskNotFound                  Kind = "TaskNotFound"
	KindTaskNotCancelable             Kind = "TaskNotCancelable"
	KindUnsupportedOperation          Kind = "UnsupportedOperation"
	KindPushNotificationNotSupported  Kind = "PushNotificationNotSupported"
	KindContentTypeNotSupported       Kind = "ContentTypeNotSupported"
	KindAuthenticationRequired        Kind = "AuthenticationRequired"
	KindExtendedAgentCardNotConfigured Kind = "ExtendedAgentCardNotConfigured"
	KindInvalidAgentResponse          Kind = "InvalidAgentResponse"
)

// Error is a structured A2A failure. It preserves a human-readable message
// and an optional wrapped cause, in the style of a tool-invocation error
// chain: Unwrap lets errors.Is/errors.As walk through to an underlying
// infrastructure error without losing the taxonomy Kind at the outermost
// layer.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf formats a message and returns an Error of the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps cause. The cause's
// message is used as the Error's message when message is empty.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, enabling errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, errors.New(KindTaskNotFound, "")) without caring about
// the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Of extracts the Kind of err, defaulting to KindInternalError for any error
// that is not (or does not wrap) an *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return ""
	}
	return KindInternalError
}

// JSON-RPC 2.0 reserved and A2A-allocated error codes. The reserved range
// (-32768..-32000) is JSON-RPC's; A2A kinds without a JSON-RPC reserved
// analogue get a code in the -32001.. application range, matching the
// convention observed across independent A2A server implementations
// (TheApeMachine-a2a-go's TaskManager uses -32001/-32002 for not-found and
// generic task failures).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeTaskNotFound                   = -32001
	CodeTaskNotCancelable              = -32002
	CodeUnsupportedOperation           = -32003
	CodePushNotificationNotSupported   = -32004
	CodeContentTypeNotSupported        = -32005
	CodeAuthenticationRequired         = -32006
	CodeExtendedAgentCardNotConfigured = -32007
	CodeInvalidAgentResponse           = -32008
)

var jsonRPCCodes = map[Kind]int{
	KindParseError:                     CodeParseError,
	KindInvalidRequest:                 CodeInvalidRequest,
	KindMethodNotFound:                 CodeMethodNotFound,
	KindInvalidParams:                  CodeInvalidParams,
	KindInternalError:                  CodeInternalError,
	KindTaskNotFound:                   CodeTaskNotFound,
	KindTaskNotCancelable:              CodeTaskNotCancelable,
	KindUnsupportedOperation:           CodeUnsupportedOperation,
	KindPushNotificationNotSupported:   CodePushNotificationNotSupported,
	KindContentTypeNotSupported:        CodeContentTypeNotSupported,
	KindAuthenticationRequired:         CodeAuthenticationRequired,
	KindExtendedAgentCardNotConfigured: CodeExtendedAgentCardNotConfigured,
	KindInvalidAgentResponse:           CodeInvalidAgentResponse,
}

// JSONRPCCode returns the JSON-RPC error code for kind, defaulting to
// CodeInternalError for an unrecognized kind.
func JSONRPCCode(kind Kind) int {
	if code, ok := jsonRPCCodes[kind]; ok {
		return code
	}
	return CodeInternalError
}

// HTTPStatus returns the REST status code for kind per spec.md §7's
// propagation policy.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindTaskNotFound, KindMethodNotFound:
		return 404
	case KindInvalidRequest, KindInvalidParams, KindParseError, KindTaskNotCancelable, KindUnsupportedOperation, KindPushNotificationNotSupported:
		return 400
	case KindContentTypeNotSupported:
		return 422
	case KindAuthenticationRequired:
		return 401
	default:
		return 500
	}
}
