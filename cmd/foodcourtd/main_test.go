package main

import (
	"testing"

	"foodcourt/config"
	"foodcourt/crypto"
	"foodcourt/native/participants"
)

func TestGenesisFromConfig(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := key.PubKey().Address()
	cfg := &config.Config{
		ChainID:            9,
		Owner:              owner.String(),
		Profile:            "extended",
		RegistrationPolicy: "reject",
		EmitMutationEvents: true,
		Global: config.Global{
			Quota: config.Quota{MaxTxPerEpoch: 3, EpochSeconds: 60},
		},
	}
	genesis, err := genesisFromConfig(cfg)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if genesis.ChainID != 9 || genesis.Owner != owner.Bytes20() {
		t.Fatalf("unexpected chain or owner: %+v", genesis)
	}
	if genesis.Profile != participants.ProfileExtended || genesis.Policy != participants.PolicyReject {
		t.Fatalf("unexpected profile or policy: %+v", genesis)
	}
	if !genesis.MutationEvents || genesis.Quota.MaxRequestsPerEpoch != 3 || genesis.Quota.EpochSeconds != 60 {
		t.Fatalf("unexpected toggles: %+v", genesis)
	}

	cfg.Profile = "deluxe"
	if _, err := genesisFromConfig(cfg); err == nil {
		t.Fatalf("expected unknown profile error")
	}
	cfg.Profile = "basic"
	cfg.Owner = "not-bech32"
	if _, err := genesisFromConfig(cfg); err == nil {
		t.Fatalf("expected owner decode error")
	}
}
