package rpc

import (
	"errors"

	"github.com/codeready-toolchain/sbp/pkg/pheromone"
	"github.com/codeready-toolchain/sbp/pkg/scent"
)

// Reserved JSON-RPC 2.0 error codes (-32768 to -32000).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NewError builds an ErrorBody.
func NewError(code int, message string, data any) *ErrorBody {
	return &ErrorBody{Code: code, Message: message, Data: data}
}

// ParseError reports a malformed JSON-RPC envelope.
func ParseError(detail string) *ErrorBody {
	return NewError(CodeParseError, "parse error: "+detail, nil)
}

// MethodNotFound reports an unrecognized sbp/* method.
func MethodNotFound(method string) *ErrorBody {
	return NewError(CodeMethodNotFound, "method not found: "+method, nil)
}

// InvalidParams reports a rejected parameter: type mismatch, intensity out
// of range, unknown merge strategy, malformed predicate tree, missing
// required field. The mutation described by the request is never applied.
func InvalidParams(detail string) *ErrorBody {
	return NewError(CodeInvalidParams, detail, nil)
}

// InternalError reports an unexpected engine fault. The evaluation loop
// continues regardless; this only concerns the single failed RPC.
func InternalError(detail string) *ErrorBody {
	return NewError(CodeInternalError, "internal error: "+detail, nil)
}

// FromDomainError maps an error returned by pkg/pheromone or pkg/scent into
// the wire error taxonomy. pheromone.ErrNotFound is never expected to reach
// here as a hard error (not_found is reported via a status field instead,
// not a JSON-RPC error) but is mapped defensively in case a caller surfaces
// it directly.
func FromDomainError(err error) *ErrorBody {
	if err == nil {
		return nil
	}

	var verr *pheromone.ValidationError
	if errors.As(err, &verr) {
		return InvalidParams(verr.Error())
	}
	if errors.Is(err, scent.ErrInvalidCondition) {
		return InvalidParams(err.Error())
	}
	if errors.Is(err, pheromone.ErrNotFound) {
		return NewError(CodeInvalidParams, err.Error(), nil)
	}
	return InternalError(err.Error())
}
