package rpc

import (
	"errors"

	"github.com/LeJamon/goMarble/internal/core/result"
)

// RpcError is the error object returned inside a result.
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Type        string `json:"type"`
	Message     string `json:"error_message,omitempty"`
	// Result is the contract or host result code, when there is one.
	Result string `json:"engine_result,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// RPC error codes
const (
	// Universal errors
	RpcUNKNOWN          = -1
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	// General purpose errors
	RpcGENERAL           = 1
	RpcMISSING_COMMAND   = 2
	RpcCOMMAND_UNTRUSTED = 3

	// Subscription errors
	RpcSTREAM_MALFORMED = 26

	// Feature errors
	RpcNOT_ENABLED = 31

	// Transaction and contract errors
	RpcTXN_FAILED       = 60
	RpcBAD_SIGNATURE    = 61
	RpcBAD_SEQUENCE     = 62
	RpcUNKNOWN_CONTRACT = 63

	RpcOBJECT_NOT_FOUND = 92
)

// NewRpcError builds an error.
func NewRpcError(code int, errorString, errorType, message string) *RpcError {
	return &RpcError{Code: code, ErrorString: errorString, Type: errorType, Message: message}
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "unknownCmd", "Unknown method: "+method)
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "invalidParams", message)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", "internal", message)
}

func RpcErrorNotEnabled(message string) *RpcError {
	return NewRpcError(RpcNOT_ENABLED, "notEnabled", "notEnabled", message)
}

func RpcErrorNotFound(message string) *RpcError {
	return NewRpcError(RpcOBJECT_NOT_FOUND, "objectNotFound", "objectNotFound", message)
}

// RpcErrorFromResult maps an error returned by the chain onto an RPC error.
// The result code name is kept so clients can match on it.
func RpcErrorFromResult(err error) *RpcError {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	code := result.Of(err)
	var e *RpcError
	switch code {
	case result.Internal:
		return RpcErrorInternal(err.Error())
	case result.BadSignature:
		e = NewRpcError(RpcBAD_SIGNATURE, "badSignature", "badSignature", err.Error())
	case result.BadSequence:
		e = NewRpcError(RpcBAD_SEQUENCE, "badSequence", "badSequence", err.Error())
	case result.UnknownContract:
		e = NewRpcError(RpcUNKNOWN_CONTRACT, "unknownContract", "unknownContract", err.Error())
	case result.InvalidMessage:
		e = RpcErrorInvalidParams(err.Error())
	case result.NotFound:
		e = RpcErrorNotFound(err.Error())
	default:
		e = NewRpcError(RpcTXN_FAILED, "txnFailed", "txnFailed", err.Error())
	}
	e.Result = code.String()
	return e
}
