package participants

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"foodcourt/core/events"
	nativecommon "foodcourt/native/common"
)

const moduleName = "participants"

// ModuleName is the pause/metrics label of the registry.
const ModuleName = moduleName

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Observer receives one call per registry operation. The outcome is "ok" or a
// short error class.
type Observer interface {
	ObserveOperation(op, outcome string)
}

type storedCustomer struct {
	Address [20]byte
	Tier    uint8
	Balance *uint256.Int `rlp:"optional"`
}

type storedStore struct {
	Address [20]byte
}

type storedMeta struct {
	Owner        [20]byte
	Capabilities uint8
}

// Registry manages customer and store records. The owner and profile are fixed
// at construction; every mutation is authorised against the caller supplied by
// the transaction layer.
type Registry struct {
	st       registryState
	owner    [20]byte
	profile  Profile
	policy   RegistrationPolicy
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	observer Observer

	mutationEvents bool
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState, owner [20]byte, profile Profile) *Registry {
	return &Registry{
		st:      st,
		owner:   owner,
		profile: profile,
		policy:  PolicyOverwrite,
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetObserver installs the operation observer (usually prometheus metrics).
func (r *Registry) SetObserver(o Observer) {
	if r == nil {
		return
	}
	r.observer = o
}

// SetRegistrationPolicy selects between overwriting and rejecting repeated
// registrations.
func (r *Registry) SetRegistrationPolicy(p RegistrationPolicy) {
	if r == nil {
		return
	}
	r.policy = p
}

// SetMutationEvents enables events for tier updates and deletions, which are
// silent by default.
func (r *Registry) SetMutationEvents(enabled bool) {
	if r == nil {
		return
	}
	r.mutationEvents = enabled
}

// Owner returns the privileged address allowed to update and delete records.
func (r *Registry) Owner() [20]byte {
	return r.owner
}

// Profile returns the capability set the registry was constructed with.
func (r *Registry) Profile() Profile {
	return r.profile
}

// InitGenesis persists the owner and profile. It must run once, before the
// first transaction.
func (r *Registry) InitGenesis() error {
	if r == nil || r.st == nil {
		return ErrNotInitialised
	}
	if isZeroAddress(r.owner) {
		return fmt.Errorf("%w: owner required", ErrInvalidInput)
	}
	if !r.profile.Valid() {
		return fmt.Errorf("%w: profile %q", ErrInvalidInput, r.profile.Name)
	}
	meta := storedMeta{Owner: r.owner, Capabilities: uint8(r.profile.Capabilities)}
	return r.st.KVPut(metaKey(), &meta)
}

// VerifyGenesis checks that the persisted owner and profile match the
// configured ones. It reports false when no genesis has been written yet.
func (r *Registry) VerifyGenesis() (bool, error) {
	if r == nil || r.st == nil {
		return false, ErrNotInitialised
	}
	var meta storedMeta
	ok, err := r.st.KVGet(metaKey(), &meta)
	if err != nil || !ok {
		return false, err
	}
	if meta.Owner != r.owner {
		return true, ErrOwnerMismatch
	}
	if Capability(meta.Capabilities) != r.profile.Capabilities {
		return true, fmt.Errorf("%w: stored %s", ErrProfileMismatch, profileFromCapabilities(Capability(meta.Capabilities)).Name)
	}
	return true, nil
}

// RegisterCustomer creates or overwrites the caller's customer record. balance
// must be nil unless the profile enables customer balances.
func (r *Registry) RegisterCustomer(caller [20]byte, tier Tier, balance *uint256.Int) (err error) {
	defer r.observe("register_customer", &err)
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if !tier.Valid() {
		return fmt.Errorf("%w: tier %d", ErrInvalidInput, uint8(tier))
	}
	record := storedCustomer{Address: caller, Tier: uint8(tier)}
	if r.profile.Has(CapabilityCustomerBalance) {
		record.Balance = new(uint256.Int)
		if balance != nil {
			record.Balance.Set(balance)
		}
	} else if balance != nil {
		return fmt.Errorf("%w: customer balance not supported", ErrInvalidInput)
	}
	if r.policy == PolicyReject {
		exists, err := r.st.KVGet(customerKey(caller), nil)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: customer", ErrAlreadyRegistered)
		}
	}
	if err := r.st.KVPut(customerKey(caller), &record); err != nil {
		return err
	}
	r.emit(events.CustomerRegistered{Customer: caller, Tier: uint8(tier)})
	return nil
}

// RegisterStore creates or overwrites the caller's store record.
func (r *Registry) RegisterStore(caller [20]byte) (err error) {
	defer r.observe("register_store", &err)
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if r.policy == PolicyReject {
		exists, err := r.st.KVGet(storeKey(caller), nil)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: store", ErrAlreadyRegistered)
		}
	}
	if err := r.st.KVPut(storeKey(caller), &storedStore{Address: caller}); err != nil {
		return err
	}
	r.emit(events.StoreRegistered{Store: caller})
	return nil
}

// GetCustomer returns the full customer record or ErrCustomerNotFound.
func (r *Registry) GetCustomer(addr [20]byte) (customer *Customer, err error) {
	defer r.observe("get_customer", &err)
	return r.loadCustomer(addr)
}

// GetUserTier returns the customer's tier. It shares GetCustomer's not-found
// path.
func (r *Registry) GetUserTier(addr [20]byte) (tier Tier, err error) {
	defer r.observe("get_user_tier", &err)
	customer, err := r.loadCustomer(addr)
	if err != nil {
		return 0, err
	}
	return customer.Tier, nil
}

// GetStore returns the store record or ErrStoreNotFound. It requires the
// full-lookup capability.
func (r *Registry) GetStore(addr [20]byte) (store *Store, err error) {
	defer r.observe("get_store", &err)
	if !r.profile.Has(CapabilityStoreLookup) {
		return nil, fmt.Errorf("%w: get store", ErrUnsupported)
	}
	var stored storedStore
	ok, err := r.st.KVGet(storeKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStoreNotFound
	}
	return &Store{Address: stored.Address}, nil
}

// StoreExists reports whether addr has a store record. Absence is not an
// error. It requires the existence-probe capability.
func (r *Registry) StoreExists(addr [20]byte) (exists bool, err error) {
	defer r.observe("store_exists", &err)
	if !r.profile.Has(CapabilityStoreExists) {
		return false, fmt.Errorf("%w: store exists", ErrUnsupported)
	}
	return r.st.KVGet(storeKey(addr), nil)
}

// UpdateCustomerTier overwrites the tier of an existing customer. Only the
// owner may call it; address and balance are untouched.
func (r *Registry) UpdateCustomerTier(caller, addr [20]byte, tier Tier) (err error) {
	defer r.observe("update_customer_tier", &err)
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if !tier.Valid() {
		return fmt.Errorf("%w: tier %d", ErrInvalidInput, uint8(tier))
	}
	var stored storedCustomer
	ok, err := r.st.KVGet(customerKey(addr), &stored)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCustomerNotFound
	}
	previous := stored.Tier
	stored.Tier = uint8(tier)
	if err := r.st.KVPut(customerKey(addr), &stored); err != nil {
		return err
	}
	if r.mutationEvents {
		r.emit(events.CustomerTierUpdated{Customer: addr, OldTier: previous, NewTier: uint8(tier), Caller: caller})
	}
	return nil
}

// DeleteCustomer removes a customer record. Deleting an absent customer fails
// with ErrCustomerNotFound and leaves state untouched.
func (r *Registry) DeleteCustomer(caller, addr [20]byte) (err error) {
	defer r.observe("delete_customer", &err)
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	ok, err := r.st.KVGet(customerKey(addr), nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCustomerNotFound
	}
	if err := r.st.KVDelete(customerKey(addr)); err != nil {
		return err
	}
	if r.mutationEvents {
		r.emit(events.CustomerDeleted{Customer: addr, Caller: caller})
	}
	return nil
}

// DeleteStore removes a store record. Deleting an absent store fails with
// ErrStoreNotFound and leaves state untouched.
func (r *Registry) DeleteStore(caller, addr [20]byte) (err error) {
	defer r.observe("delete_store", &err)
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	ok, err := r.st.KVGet(storeKey(addr), nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStoreNotFound
	}
	if err := r.st.KVDelete(storeKey(addr)); err != nil {
		return err
	}
	if r.mutationEvents {
		r.emit(events.StoreDeleted{Store: addr, Caller: caller})
	}
	return nil
}

func (r *Registry) loadCustomer(addr [20]byte) (*Customer, error) {
	var stored storedCustomer
	ok, err := r.st.KVGet(customerKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCustomerNotFound
	}
	customer := &Customer{Address: stored.Address, Tier: Tier(stored.Tier)}
	if r.profile.Has(CapabilityCustomerBalance) {
		customer.Balance = new(uint256.Int)
		if stored.Balance != nil {
			customer.Balance.Set(stored.Balance)
		}
	}
	return customer, nil
}

func (r *Registry) requireOwner(caller [20]byte) error {
	if caller != r.owner {
		return ErrUnauthorized
	}
	return nil
}

func (r *Registry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

func (r *Registry) observe(op string, errp *error) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveOperation(op, outcomeOf(*errp))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrModulePaused):
		return "paused"
	default:
		return "error"
	}
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
