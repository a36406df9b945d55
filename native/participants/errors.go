package participants

import (
	"errors"

	nativecommon "foodcourt/native/common"
)

var (
	// ErrCustomerNotFound keeps the "Customer not found" wording that
	// collaborators match on.
	ErrCustomerNotFound = errors.New("participants: Customer not found")
	// ErrStoreNotFound keeps the "Store not found" wording that collaborators
	// match on.
	ErrStoreNotFound     = errors.New("participants: Store not found")
	ErrUnauthorized      = errors.New("participants: unauthorized")
	ErrInvalidInput      = errors.New("participants: invalid input")
	ErrUnsupported       = errors.New("participants: operation not supported by registry profile")
	ErrAlreadyRegistered = errors.New("participants: already registered")
	ErrNotInitialised    = errors.New("participants: registry not initialised")
	ErrOwnerMismatch     = errors.New("participants: configured owner does not match genesis owner")
	ErrProfileMismatch   = errors.New("participants: configured profile does not match genesis profile")

	// ErrModulePaused is re-exported so callers need not import native/common.
	ErrModulePaused = nativecommon.ErrModulePaused
)

// IsNotFound reports whether err marks an absent customer or store record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrStoreNotFound)
}
