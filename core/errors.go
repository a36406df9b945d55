package core

import (
	"errors"

	nativecommon "foodcourt/native/common"
	"foodcourt/native/participants"
)

var (
	ErrInvalidTransaction = errors.New("ledger: invalid transaction")
	ErrInvalidSignature   = errors.New("ledger: invalid signature")
	ErrChainIDMismatch    = errors.New("ledger: chain id mismatch")
	ErrNonceMismatch      = errors.New("ledger: nonce mismatch")
	ErrUnknownTxType      = errors.New("ledger: unknown transaction type")
	ErrLedgerClosed       = errors.New("ledger: closed")

	// ErrQuotaExceeded is returned when the sender exhausted its per-epoch
	// transaction allowance.
	ErrQuotaExceeded = nativecommon.ErrQuotaRequestsExceeded
	// ErrOwnerMismatch is returned on restart when the configured owner differs
	// from the genesis owner.
	ErrOwnerMismatch = participants.ErrOwnerMismatch
)
