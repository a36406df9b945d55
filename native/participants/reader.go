package participants

import "errors"

// Reader is the read-only surface consumed by the marketplace and reward-token
// components to gate their own logic.
type Reader interface {
	GetCustomer(addr [20]byte) (*Customer, error)
	GetUserTier(addr [20]byte) (Tier, error)
	GetStore(addr [20]byte) (*Store, error)
	StoreExists(addr [20]byte) (bool, error)
}

var _ Reader = (*Registry)(nil)

// IsEligibleCustomer reports whether addr is a registered customer with at
// least the minimum tier. Absent customers are not eligible and do not produce
// an error.
func IsEligibleCustomer(r Reader, addr [20]byte, minimum Tier) (bool, error) {
	tier, err := r.GetUserTier(addr)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return tier >= minimum, nil
}

// IsRegisteredStore reports store registration using whichever read the
// registry profile exposes.
func IsRegisteredStore(r Reader, addr [20]byte) (bool, error) {
	exists, err := r.StoreExists(addr)
	if err == nil {
		return exists, nil
	}
	if !errors.Is(err, ErrUnsupported) {
		return false, err
	}
	_, err = r.GetStore(addr)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
