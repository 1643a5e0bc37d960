package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	neorpc "github.com/emperorhan/neo-wallet-engine/internal/chain/neo/rpc"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

type classifiedError struct {
	err    error
	class  Class
	reason string
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTransient, reason: "explicit_transient"}
}

func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTerminal, reason: "explicit_terminal"}
}

// Marked returns the class set by Transient or Terminal, if any.
func Marked(err error) (Class, bool) {
	var marked *classifiedError
	if errors.As(err, &marked) {
		return marked.class, true
	}
	return "", false
}

// Classify decides whether err is worth retrying. Cancellation is always
// terminal; node errors follow their kind; anything unrecognised falls back
// to message tokens and finally to transient, since a claim step keeps
// retrying until something says it cannot succeed.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: marked.reason}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	if kind, ok := neorpc.KindOf(err); ok {
		if kind.Retryable() {
			return Decision{Class: ClassTransient, Reason: "node_" + string(kind)}
		}
		return classifyNodeRequestError(err, kind)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, terminalMessageTokens) {
		return Decision{Class: ClassTerminal, Reason: "message_terminal"}
	}
	if containsAny(lower, transientMessageTokens) {
		return Decision{Class: ClassTransient, Reason: "message_transient"}
	}

	return Decision{Class: ClassTransient, Reason: "unknown_transient_default"}
}

// classifyNodeRequestError handles the non-retryable node kinds. A JSON-RPC
// error in the server range is a node-side condition, not a bad request.
func classifyNodeRequestError(err error, kind neorpc.ErrorKind) Decision {
	var rpcErr *neorpc.RPCError
	if kind == neorpc.KindMalformedRequest && errors.As(err, &rpcErr) {
		return classifyJSONRPCCode(rpcErr.Code)
	}
	return Decision{Class: ClassTerminal, Reason: "node_" + string(kind)}
}

func classifyJSONRPCCode(code int) Decision {
	if code == -32603 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_transient"}
	}
	if code <= -32000 && code >= -32099 {
		return Decision{Class: ClassTransient, Reason: "jsonrpc_server_range"}
	}
	return Decision{Class: ClassTerminal, Reason: "jsonrpc_terminal"}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"too many requests",
	"rate limit",
	"http status 429",
	"http status 502",
	"http status 503",
	"http status 504",
	"server closed idle connection",
}

var terminalMessageTokens = []string{
	"invalid params",
	"method not found",
	"parse error",
	"insufficient funds",
	"invalid neo address",
}
