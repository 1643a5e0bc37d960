package rpc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies node failures for retry decisions.
type ErrorKind string

const (
	KindInvalidEndpoint   ErrorKind = "invalid_endpoint"
	KindMalformedRequest  ErrorKind = "malformed_request"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindTransportFailure  ErrorKind = "transport_failure"
	KindUnreachable       ErrorKind = "unreachable"
)

// Retryable reports whether the same call may succeed later.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindUnreachable, KindTransportFailure, KindMalformedResponse:
		return true
	}
	return false
}

// NodeError is returned by every Client method.
type NodeError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func newNodeError(kind ErrorKind, op string, err error) *NodeError {
	return &NodeError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind of the first NodeError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	if k, ok := KindOf(err); ok {
		return string(k)
	}
	return "error"
}
