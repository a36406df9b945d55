package rpc

import (
	"errors"
	"net/http"

	"foodcourt/core"
	"foodcourt/core/types"
	"foodcourt/native/participants"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeUnsupported    = -32005
	codePaused         = -32006
	codeConflict       = -32009
	codeNonce          = -32010
	codeRateLimited    = -32020
)

// errorFor maps ledger and registry errors onto an HTTP status and JSON-RPC
// code. The message always carries the original error text so collaborators
// can match on "Customer not found" and "Store not found".
func errorFor(err error) (int, *RPCError) {
	status, code := http.StatusInternalServerError, codeServerError
	switch {
	case participants.IsNotFound(err):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, participants.ErrUnauthorized):
		status, code = http.StatusForbidden, codeUnauthorized
	case errors.Is(err, participants.ErrUnsupported):
		status, code = http.StatusBadRequest, codeUnsupported
	case errors.Is(err, participants.ErrModulePaused):
		status, code = http.StatusServiceUnavailable, codePaused
	case errors.Is(err, participants.ErrAlreadyRegistered):
		status, code = http.StatusConflict, codeConflict
	case errors.Is(err, core.ErrNonceMismatch):
		status, code = http.StatusConflict, codeNonce
	case errors.Is(err, core.ErrQuotaExceeded):
		status, code = http.StatusTooManyRequests, codeRateLimited
	case errors.Is(err, participants.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidSignature),
		errors.Is(err, core.ErrInvalidTransaction),
		errors.Is(err, core.ErrChainIDMismatch),
		errors.Is(err, core.ErrUnknownTxType),
		errors.Is(err, types.ErrMissingSignature):
		status, code = http.StatusBadRequest, codeInvalidParams
	}
	return status, &RPCError{Code: code, Message: err.Error()}
}
