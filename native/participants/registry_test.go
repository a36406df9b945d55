package participants_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"foodcourt/core/events"
	"foodcourt/core/state"
	nativecommon "foodcourt/native/common"
	"foodcourt/native/participants"
	"foodcourt/storage"
	statetrie "foodcourt/storage/trie"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

type countingObserver struct {
	calls map[string]int
}

func (o *countingObserver) ObserveOperation(op, outcome string) {
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[op+"/"+outcome]++
}

var (
	owner     = addr(0x01)
	customer1 = addr(0x11)
	store1    = addr(0x22)
	outsider  = addr(0x33)
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func newTestRegistry(t *testing.T, profile participants.Profile) (*participants.Registry, *state.Manager, *capturingEmitter) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := statetrie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("create trie: %v", err)
	}
	manager := state.NewManager(tr)
	registry := participants.NewRegistry(manager, owner, profile)
	if err := registry.InitGenesis(); err != nil {
		t.Fatalf("init genesis: %v", err)
	}
	emitter := &capturingEmitter{}
	registry.SetEmitter(emitter)
	return registry, manager, emitter
}

func TestUnregisteredAddressesAreAbsent(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileFull)

	if _, err := registry.GetCustomer(outsider); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("expected customer not found, got %v", err)
	}
	if _, err := registry.GetUserTier(outsider); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("expected customer not found from tier lookup, got %v", err)
	}
	exists, err := registry.StoreExists(outsider)
	if err != nil {
		t.Fatalf("store exists: %v", err)
	}
	if exists {
		t.Fatalf("expected store to be absent")
	}
	if _, err := registry.GetStore(outsider); !errors.Is(err, participants.ErrStoreNotFound) {
		t.Fatalf("expected store not found, got %v", err)
	}
}

func TestNotFoundMessagesCarryEntityKind(t *testing.T) {
	if !strings.Contains(participants.ErrCustomerNotFound.Error(), "Customer not found") {
		t.Fatalf("unexpected customer message %q", participants.ErrCustomerNotFound)
	}
	if !strings.Contains(participants.ErrStoreNotFound.Error(), "Store not found") {
		t.Fatalf("unexpected store message %q", participants.ErrStoreNotFound)
	}
}

func TestRegisterCustomerEmitsEventAndStoresRecord(t *testing.T) {
	registry, _, emitter := newTestRegistry(t, participants.ProfileBasic)

	if err := registry.RegisterCustomer(customer1, participants.TierSilver, nil); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	registered, ok := emitter.events[0].(events.CustomerRegistered)
	if !ok {
		t.Fatalf("unexpected event %T", emitter.events[0])
	}
	if registered.Customer != customer1 || registered.Tier != uint8(participants.TierSilver) {
		t.Fatalf("unexpected event payload %+v", registered)
	}

	got, err := registry.GetCustomer(customer1)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Address != customer1 {
		t.Fatalf("customer address mismatch: %x", got.Address)
	}
	if got.Tier != participants.TierSilver {
		t.Fatalf("customer tier mismatch: %s", got.Tier)
	}
	if got.Balance != nil {
		t.Fatalf("basic profile must not expose a balance, got %v", got.Balance)
	}
}

func TestRegisterCustomerWithBalance(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileExtended)

	if err := registry.RegisterCustomer(customer1, participants.TierSilver, uint256.NewInt(250)); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	got, err := registry.GetCustomer(customer1)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Address != customer1 || got.Tier != participants.TierSilver {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Balance == nil || got.Balance.Uint64() != 250 {
		t.Fatalf("unexpected balance %v", got.Balance)
	}

	other := addr(0x44)
	if err := registry.RegisterCustomer(other, participants.TierGold, nil); err != nil {
		t.Fatalf("register customer without balance: %v", err)
	}
	got, err = registry.GetCustomer(other)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Balance == nil || !got.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %v", got.Balance)
	}
}

func TestRegisterCustomerRejectsInvalidInput(t *testing.T) {
	registry, _, emitter := newTestRegistry(t, participants.ProfileBasic)

	if err := registry.RegisterCustomer(customer1, participants.Tier(9), nil); !errors.Is(err, participants.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown tier, got %v", err)
	}
	if err := registry.RegisterCustomer(customer1, participants.TierGold, uint256.NewInt(1)); !errors.Is(err, participants.ErrInvalidInput) {
		t.Fatalf("expected invalid input for balance on basic profile, got %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events on failure, got %d", len(emitter.events))
	}
	if _, err := registry.GetCustomer(customer1); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("failed registration must not create a record, got %v", err)
	}
}

func TestReRegistrationOverwritesByDefault(t *testing.T) {
	registry, _, emitter := newTestRegistry(t, participants.ProfileExtended)

	if err := registry.RegisterCustomer(customer1, participants.TierSilver, uint256.NewInt(5)); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if err := registry.RegisterCustomer(customer1, participants.TierGold, uint256.NewInt(9)); err != nil {
		t.Fatalf("re-register customer: %v", err)
	}
	got, err := registry.GetCustomer(customer1)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Tier != participants.TierGold || got.Balance.Uint64() != 9 {
		t.Fatalf("expected overwritten record, got %+v", got)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected an event per registration, got %d", len(emitter.events))
	}

	if err := registry.RegisterStore(store1); err != nil {
		t.Fatalf("register store: %v", err)
	}
	if err := registry.RegisterStore(store1); err != nil {
		t.Fatalf("re-register store: %v", err)
	}
}

func TestReRegistrationRejectedByPolicy(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileFull)
	registry.SetRegistrationPolicy(participants.PolicyReject)

	if err := registry.RegisterCustomer(customer1, participants.TierSilver, nil); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if err := registry.RegisterCustomer(customer1, participants.TierGold, nil); !errors.Is(err, participants.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}
	tier, err := registry.GetUserTier(customer1)
	if err != nil {
		t.Fatalf("get tier: %v", err)
	}
	if tier != participants.TierSilver {
		t.Fatalf("rejected registration changed tier to %s", tier)
	}

	if err := registry.RegisterStore(store1); err != nil {
		t.Fatalf("register store: %v", err)
	}
	if err := registry.RegisterStore(store1); !errors.Is(err, participants.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered store, got %v", err)
	}
}

func TestRegisterStoreEmitsEvent(t *testing.T) {
	registry, _, emitter := newTestRegistry(t, participants.ProfileFull)

	if err := registry.RegisterStore(store1); err != nil {
		t.Fatalf("register store: %v", err)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType() != events.TypeStoreRegistered {
		t.Fatalf("expected store registered event, got %v", emitter.events)
	}
	if ev := emitter.events[0].(events.StoreRegistered); ev.Store != store1 {
		t.Fatalf("unexpected store in event: %x", ev.Store)
	}
	exists, err := registry.StoreExists(store1)
	if err != nil || !exists {
		t.Fatalf("expected store to exist: exists=%v err=%v", exists, err)
	}
	got, err := registry.GetStore(store1)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if got.Address != store1 {
		t.Fatalf("unexpected store address %x", got.Address)
	}
}

func TestUpdateCustomerTier(t *testing.T) {
	registry, _, emitter := newTestRegistry(t, participants.ProfileExtended)

	if err := registry.RegisterCustomer(customer1, participants.TierSilver, uint256.NewInt(77)); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	emitter.events = nil

	if err := registry.UpdateCustomerTier(outsider, customer1, participants.TierGold); !errors.Is(err, participants.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := registry.UpdateCustomerTier(customer1, customer1, participants.TierGold); !errors.Is(err, participants.ErrUnauthorized) {
		t.Fatalf("subject must not update its own tier, got %v", err)
	}
	tier, err := registry.GetUserTier(customer1)
	if err != nil {
		t.Fatalf("get tier: %v", err)
	}
	if tier != participants.TierSilver {
		t.Fatalf("unauthorized update changed tier to %s", tier)
	}

	if err := registry.UpdateCustomerTier(owner, customer1, participants.TierGold); err != nil {
		t.Fatalf("update tier: %v", err)
	}
	got, err := registry.GetCustomer(customer1)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Tier != participants.TierGold {
		t.Fatalf("expected gold tier, got %s", got.Tier)
	}
	if got.Address != customer1 || got.Balance.Uint64() != 77 {
		t.Fatalf("update must not touch address or balance: %+v", got)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("tier update must be silent by default, got %d events", len(emitter.events))
	}

	if err := registry.UpdateCustomerTier(owner, outsider, participants.TierGold); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("expected customer not found, got %v", err)
	}
	if err := registry.UpdateCustomerTier(owner, customer1, participants.Tier(42)); !errors.Is(err, participants.ErrInvalidInput) {
		t.Fatalf("expected invalid tier, got %v", err)
	}
}

func TestDeleteCustomer(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileBasic)

	if err := registry.RegisterCustomer(customer1, participants.TierGold, nil); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if err := registry.DeleteCustomer(outsider, customer1); !errors.Is(err, participants.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := registry.GetCustomer(customer1); err != nil {
		t.Fatalf("unauthorized delete removed the record: %v", err)
	}

	if err := registry.DeleteCustomer(owner, customer1); err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	_, err := registry.GetCustomer(customer1)
	if err == nil || !strings.Contains(err.Error(), "Customer not found") {
		t.Fatalf("expected 'Customer not found' error, got %v", err)
	}
	if _, err := registry.GetUserTier(customer1); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("expected tier lookup to fail, got %v", err)
	}

	if err := registry.DeleteCustomer(owner, customer1); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("second delete must report not found, got %v", err)
	}
	if _, err := registry.GetCustomer(customer1); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("repeated delete resurrected the record: %v", err)
	}
}

func TestDeleteStore(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileFull)

	if err := registry.RegisterStore(store1); err != nil {
		t.Fatalf("register store: %v", err)
	}
	if err := registry.DeleteStore(customer1, store1); !errors.Is(err, participants.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := registry.DeleteStore(owner, store1); err != nil {
		t.Fatalf("delete store: %v", err)
	}
	exists, err := registry.StoreExists(store1)
	if err != nil {
		t.Fatalf("store exists: %v", err)
	}
	if exists {
		t.Fatalf("store should not exist after deletion")
	}
	if _, err := registry.GetStore(store1); !errors.Is(err, participants.ErrStoreNotFound) {
		t.Fatalf("expected store not found, got %v", err)
	}
	if err := registry.DeleteStore(owner, store1); !errors.Is(err, participants.ErrStoreNotFound) {
		t.Fatalf("second delete must report not found, got %v", err)
	}
}

func TestCustomerAndStoreCollectionsAreIndependent(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileFull)
	shared := addr(0x55)

	if err := registry.RegisterCustomer(shared, participants.TierSilver, nil); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if err := registry.RegisterStore(shared); err != nil {
		t.Fatalf("register store: %v", err)
	}
	if err := registry.DeleteStore(owner, shared); err != nil {
		t.Fatalf("delete store: %v", err)
	}
	if _, err := registry.GetCustomer(shared); err != nil {
		t.Fatalf("deleting the store removed the customer: %v", err)
	}
}

func TestRoundTripLifecycle(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileExtended)

	if err := registry.RegisterCustomer(customer1, participants.TierSilver, uint256.NewInt(10)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if tier, err := registry.GetUserTier(customer1); err != nil || tier != participants.TierSilver {
		t.Fatalf("after register: tier=%s err=%v", tier, err)
	}
	if err := registry.UpdateCustomerTier(owner, customer1, participants.TierPlatinum); err != nil {
		t.Fatalf("update: %v", err)
	}
	if tier, err := registry.GetUserTier(customer1); err != nil || tier != participants.TierPlatinum {
		t.Fatalf("after update: tier=%s err=%v", tier, err)
	}
	if err := registry.DeleteCustomer(owner, customer1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := registry.GetCustomer(customer1); !errors.Is(err, participants.ErrCustomerNotFound) {
		t.Fatalf("after delete: %v", err)
	}

	// A fresh registration starts from the new inputs, not from residual state.
	if err := registry.RegisterCustomer(customer1, participants.TierGold, nil); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	got, err := registry.GetCustomer(customer1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tier != participants.TierGold || !got.Balance.IsZero() {
		t.Fatalf("residual state after re-registration: %+v", got)
	}
}

func TestMutationEventsWhenEnabled(t *testing.T) {
	registry, _, emitter := newTestRegistry(t, participants.ProfileFull)
	registry.SetMutationEvents(true)

	if err := registry.RegisterCustomer(customer1, participants.TierSilver, nil); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if err := registry.RegisterStore(store1); err != nil {
		t.Fatalf("register store: %v", err)
	}
	if err := registry.UpdateCustomerTier(owner, customer1, participants.TierGold); err != nil {
		t.Fatalf("update tier: %v", err)
	}
	if err := registry.DeleteCustomer(owner, customer1); err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	if err := registry.DeleteStore(owner, store1); err != nil {
		t.Fatalf("delete store: %v", err)
	}

	want := []string{
		events.TypeCustomerRegistered,
		events.TypeStoreRegistered,
		events.TypeCustomerTierUpdated,
		events.TypeCustomerDeleted,
		events.TypeStoreDeleted,
	}
	if len(emitter.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(emitter.events))
	}
	for i, typ := range want {
		if emitter.events[i].EventType() != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, emitter.events[i].EventType())
		}
	}
	updated := emitter.events[2].(events.CustomerTierUpdated)
	if updated.OldTier != uint8(participants.TierSilver) || updated.NewTier != uint8(participants.TierGold) || updated.Caller != owner {
		t.Fatalf("unexpected tier update event %+v", updated)
	}
}

func TestPausedRegistryRejectsMutations(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileFull)
	if err := registry.RegisterCustomer(customer1, participants.TierSilver, nil); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	pauses := nativecommon.NewPauseSet(participants.ModuleName)
	registry.SetPauses(pauses)

	if err := registry.RegisterStore(store1); !errors.Is(err, participants.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := registry.UpdateCustomerTier(owner, customer1, participants.TierGold); !errors.Is(err, participants.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if _, err := registry.GetCustomer(customer1); err != nil {
		t.Fatalf("reads must keep working while paused: %v", err)
	}

	pauses.Set(participants.ModuleName, false)
	if err := registry.RegisterStore(store1); err != nil {
		t.Fatalf("register after resume: %v", err)
	}
}

func TestProfileGatesStoreReads(t *testing.T) {
	basic, _, _ := newTestRegistry(t, participants.ProfileBasic)
	if _, err := basic.GetStore(store1); !errors.Is(err, participants.ErrUnsupported) {
		t.Fatalf("basic profile must not expose GetStore, got %v", err)
	}

	extended, _, _ := newTestRegistry(t, participants.ProfileExtended)
	if _, err := extended.StoreExists(store1); !errors.Is(err, participants.ErrUnsupported) {
		t.Fatalf("extended profile must not expose StoreExists, got %v", err)
	}
	if err := extended.RegisterStore(store1); err != nil {
		t.Fatalf("register store: %v", err)
	}
	ok, err := participants.IsRegisteredStore(extended, store1)
	if err != nil || !ok {
		t.Fatalf("expected store to be registered via lookup fallback: ok=%v err=%v", ok, err)
	}
	ok, err = participants.IsRegisteredStore(basic, store1)
	if err != nil || ok {
		t.Fatalf("expected store to be absent on basic registry: ok=%v err=%v", ok, err)
	}
}

func TestIsEligibleCustomer(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileBasic)
	if err := registry.RegisterCustomer(customer1, participants.TierGold, nil); err != nil {
		t.Fatalf("register customer: %v", err)
	}
	ok, err := participants.IsEligibleCustomer(registry, customer1, participants.TierGold)
	if err != nil || !ok {
		t.Fatalf("expected gold customer to be eligible: ok=%v err=%v", ok, err)
	}
	ok, err = participants.IsEligibleCustomer(registry, customer1, participants.TierPlatinum)
	if err != nil || ok {
		t.Fatalf("expected gold customer to miss platinum: ok=%v err=%v", ok, err)
	}
	ok, err = participants.IsEligibleCustomer(registry, outsider, participants.TierSilver)
	if err != nil || ok {
		t.Fatalf("expected unknown customer to be ineligible: ok=%v err=%v", ok, err)
	}
}

func TestObserverRecordsOutcomes(t *testing.T) {
	registry, _, _ := newTestRegistry(t, participants.ProfileBasic)
	observer := &countingObserver{}
	registry.SetObserver(observer)

	_ = registry.RegisterCustomer(customer1, participants.TierSilver, nil)
	_, _ = registry.GetCustomer(outsider)
	_ = registry.DeleteCustomer(outsider, customer1)

	for key, want := range map[string]int{
		"register_customer/ok":        1,
		"get_customer/not_found":      1,
		"delete_customer/unauthorized": 1,
	} {
		if observer.calls[key] != want {
			t.Fatalf("expected %d observations for %s, got %d (%v)", want, key, observer.calls[key], observer.calls)
		}
	}
}
