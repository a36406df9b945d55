package participants

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Tier is the customer status level consulted by the marketplace and reward
// token when deciding eligibility.
type Tier uint8

const (
	TierSilver Tier = iota
	TierGold
	TierPlatinum
)

var tierNames = map[Tier]string{
	TierSilver:   "silver",
	TierGold:     "gold",
	TierPlatinum: "platinum",
}

// Valid reports whether t is a member of the closed tier set.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// ParseTier accepts either a tier name ("gold") or its numeric value ("1").
func ParseTier(raw string) (Tier, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	for tier, name := range tierNames {
		if name == trimmed {
			return tier, nil
		}
	}
	value, err := strconv.ParseUint(trimmed, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, raw)
	}
	tier := Tier(value)
	if !tier.Valid() {
		return 0, fmt.Errorf("%w: tier %d", ErrInvalidInput, value)
	}
	return tier, nil
}

// Customer is a registered customer record. Balance is nil unless the registry
// profile enables customer balances.
type Customer struct {
	Address [20]byte
	Tier    Tier
	Balance *uint256.Int
}

// Clone returns a copy that does not share the balance pointer.
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	out := *c
	if c.Balance != nil {
		out.Balance = new(uint256.Int).Set(c.Balance)
	}
	return &out
}

// Store is a registered store record.
type Store struct {
	Address [20]byte
}

// Capability toggles an optional part of the registry surface.
type Capability uint8

const (
	// CapabilityStoreExists enables the boolean StoreExists probe.
	CapabilityStoreExists Capability = 1 << iota
	// CapabilityStoreLookup enables GetStore with a not-found error.
	CapabilityStoreLookup
	// CapabilityCustomerBalance stores a balance on every customer record.
	CapabilityCustomerBalance

	capabilityMask = CapabilityStoreExists | CapabilityStoreLookup | CapabilityCustomerBalance
)

// Profile is the capability set a registry is constructed with. It is fixed at
// genesis.
type Profile struct {
	Name         string
	Capabilities Capability
}

var (
	// ProfileBasic exposes the existence probe and no customer balance.
	ProfileBasic = Profile{Name: "basic", Capabilities: CapabilityStoreExists}
	// ProfileExtended exposes full store lookup and customer balances.
	ProfileExtended = Profile{Name: "extended", Capabilities: CapabilityStoreLookup | CapabilityCustomerBalance}
	// ProfileFull enables every capability.
	ProfileFull = Profile{Name: "full", Capabilities: capabilityMask}
)

// Has reports whether the profile enables capability c.
func (p Profile) Has(c Capability) bool {
	return p.Capabilities&c == c
}

// Valid reports whether the profile exposes at least one store read.
func (p Profile) Valid() bool {
	if p.Capabilities&^capabilityMask != 0 {
		return false
	}
	return p.Has(CapabilityStoreExists) || p.Has(CapabilityStoreLookup)
}

// ParseProfile resolves a named profile.
func ParseProfile(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileBasic.Name:
		return ProfileBasic, nil
	case ProfileExtended.Name:
		return ProfileExtended, nil
	case ProfileFull.Name:
		return ProfileFull, nil
	default:
		return Profile{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidInput, name)
	}
}

// profileFromCapabilities maps stored capabilities back onto a named profile.
func profileFromCapabilities(caps Capability) Profile {
	for _, p := range []Profile{ProfileBasic, ProfileExtended, ProfileFull} {
		if p.Capabilities == caps {
			return p
		}
	}
	return Profile{Name: "custom", Capabilities: caps}
}

// RegistrationPolicy decides what happens when an address registers twice.
type RegistrationPolicy uint8

const (
	// PolicyOverwrite replaces the existing record.
	PolicyOverwrite RegistrationPolicy = iota
	// PolicyReject fails with ErrAlreadyRegistered.
	PolicyReject
)

// ParseRegistrationPolicy resolves "overwrite" or "reject".
func ParseRegistrationPolicy(name string) (RegistrationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "overwrite":
		return PolicyOverwrite, nil
	case "reject":
		return PolicyReject, nil
	default:
		return PolicyOverwrite, fmt.Errorf("%w: unknown registration policy %q", ErrInvalidInput, name)
	}
}

func (p RegistrationPolicy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "overwrite"
}
