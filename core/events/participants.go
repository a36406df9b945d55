package events

import (
	"strconv"

	"foodcourt/core/types"
	"foodcourt/crypto"
)

const (
	// TypeCustomerRegistered is emitted when an address registers (or
	// re-registers) itself as a customer.
	TypeCustomerRegistered = "participants.customer.registered"
	// TypeStoreRegistered is emitted when an address registers (or
	// re-registers) itself as a store.
	TypeStoreRegistered = "participants.store.registered"
	// TypeCustomerTierUpdated is emitted for owner tier updates when mutation
	// events are enabled.
	TypeCustomerTierUpdated = "participants.customer.tierUpdated"
	// TypeCustomerDeleted is emitted for owner deletions when mutation events
	// are enabled.
	TypeCustomerDeleted = "participants.customer.deleted"
	// TypeStoreDeleted is emitted for owner deletions when mutation events are
	// enabled.
	TypeStoreDeleted = "participants.store.deleted"
)

// CustomerRegistered mirrors CustomerRegistered(customerAddress, tier).
type CustomerRegistered struct {
	Customer [20]byte
	Tier     uint8
}

// EventType implements the Event interface.
func (CustomerRegistered) EventType() string { return TypeCustomerRegistered }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e CustomerRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeCustomerRegistered,
		Attributes: map[string]string{
			"customerAddress": crypto.FromBytes20(e.Customer).String(),
			"tier":            strconv.FormatUint(uint64(e.Tier), 10),
		},
	}
}

// StoreRegistered mirrors StoreRegistered(storeAddress).
type StoreRegistered struct {
	Store [20]byte
}

// EventType implements the Event interface.
func (StoreRegistered) EventType() string { return TypeStoreRegistered }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e StoreRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeStoreRegistered,
		Attributes: map[string]string{
			"storeAddress": crypto.FromBytes20(e.Store).String(),
		},
	}
}

// CustomerTierUpdated captures an owner tier change.
type CustomerTierUpdated struct {
	Customer [20]byte
	OldTier  uint8
	NewTier  uint8
	Caller   [20]byte
}

// EventType implements the Event interface.
func (CustomerTierUpdated) EventType() string { return TypeCustomerTierUpdated }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e CustomerTierUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeCustomerTierUpdated,
		Attributes: map[string]string{
			"customerAddress": crypto.FromBytes20(e.Customer).String(),
			"oldTier":         strconv.FormatUint(uint64(e.OldTier), 10),
			"newTier":         strconv.FormatUint(uint64(e.NewTier), 10),
			"caller":          crypto.FromBytes20(e.Caller).String(),
		},
	}
}

// CustomerDeleted captures an owner customer removal.
type CustomerDeleted struct {
	Customer [20]byte
	Caller   [20]byte
}

// EventType implements the Event interface.
func (CustomerDeleted) EventType() string { return TypeCustomerDeleted }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e CustomerDeleted) Event() *types.Event {
	return &types.Event{
		Type: TypeCustomerDeleted,
		Attributes: map[string]string{
			"customerAddress": crypto.FromBytes20(e.Customer).String(),
			"caller":          crypto.FromBytes20(e.Caller).String(),
		},
	}
}

// StoreDeleted captures an owner store removal.
type StoreDeleted struct {
	Store  [20]byte
	Caller [20]byte
}

// EventType implements the Event interface.
func (StoreDeleted) EventType() string { return TypeStoreDeleted }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e StoreDeleted) Event() *types.Event {
	return &types.Event{
		Type: TypeStoreDeleted,
		Attributes: map[string]string{
			"storeAddress": crypto.FromBytes20(e.Store).String(),
			"caller":       crypto.FromBytes20(e.Caller).String(),
		},
	}
}
