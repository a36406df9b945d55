package participants_test

import (
	"errors"
	"testing"

	"foodcourt/core/state"
	"foodcourt/native/participants"
	"foodcourt/storage"
	statetrie "foodcourt/storage/trie"
)

func TestVerifyGenesis(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := statetrie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("create trie: %v", err)
	}
	manager := state.NewManager(tr)

	registry := participants.NewRegistry(manager, owner, participants.ProfileBasic)
	initialised, err := registry.VerifyGenesis()
	if err != nil {
		t.Fatalf("verify empty genesis: %v", err)
	}
	if initialised {
		t.Fatalf("expected no genesis before InitGenesis")
	}
	if err := registry.InitGenesis(); err != nil {
		t.Fatalf("init genesis: %v", err)
	}
	if ok, err := registry.VerifyGenesis(); err != nil || !ok {
		t.Fatalf("verify genesis: ok=%v err=%v", ok, err)
	}

	otherOwner := participants.NewRegistry(manager, outsider, participants.ProfileBasic)
	if _, err := otherOwner.VerifyGenesis(); !errors.Is(err, participants.ErrOwnerMismatch) {
		t.Fatalf("expected owner mismatch, got %v", err)
	}
	otherProfile := participants.NewRegistry(manager, owner, participants.ProfileExtended)
	if _, err := otherProfile.VerifyGenesis(); !errors.Is(err, participants.ErrProfileMismatch) {
		t.Fatalf("expected profile mismatch, got %v", err)
	}
}

func TestInitGenesisRequiresOwner(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := statetrie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("create trie: %v", err)
	}
	registry := participants.NewRegistry(state.NewManager(tr), [20]byte{}, participants.ProfileBasic)
	if err := registry.InitGenesis(); !errors.Is(err, participants.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero owner, got %v", err)
	}
}

func TestParseHelpers(t *testing.T) {
	tier, err := participants.ParseTier("Gold")
	if err != nil || tier != participants.TierGold {
		t.Fatalf("parse tier by name: %v %v", tier, err)
	}
	tier, err = participants.ParseTier("0")
	if err != nil || tier != participants.TierSilver {
		t.Fatalf("parse tier by value: %v %v", tier, err)
	}
	if _, err := participants.ParseTier("diamond"); !errors.Is(err, participants.ErrInvalidInput) {
		t.Fatalf("expected invalid tier, got %v", err)
	}
	if _, err := participants.ParseTier("7"); !errors.Is(err, participants.ErrInvalidInput) {
		t.Fatalf("expected out of range tier, got %v", err)
	}

	profile, err := participants.ParseProfile("extended")
	if err != nil || profile != participants.ProfileExtended {
		t.Fatalf("parse profile: %+v %v", profile, err)
	}
	if !profile.Has(participants.CapabilityCustomerBalance) || profile.Has(participants.CapabilityStoreExists) {
		t.Fatalf("unexpected extended capabilities %b", profile.Capabilities)
	}
	if _, err := participants.ParseProfile("gold-plated"); err == nil {
		t.Fatalf("expected unknown profile error")
	}

	policy, err := participants.ParseRegistrationPolicy("reject")
	if err != nil || policy != participants.PolicyReject {
		t.Fatalf("parse policy: %v %v", policy, err)
	}
}
