package types

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func TestTransactionSignAndRecoverSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx, err := NewTransaction(7, TxTypeRegisterCustomer, 3, &RegisterCustomerPayload{Tier: 1, Balance: uint256.NewInt(42)})
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	if _, err := tx.From(); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected missing signature error, got %v", err)
	}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	from, err := tx.From()
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey).Bytes()
	if !bytes.Equal(from, want) {
		t.Fatalf("sender mismatch: %x != %x", from, want)
	}

	var payload RegisterCustomerPayload
	if err := tx.DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Tier != 1 || payload.Balance == nil || payload.Balance.Uint64() != 42 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTransactionTamperingChangesSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx, err := NewTransaction(1, TxTypeRegisterStore, 0, &RegisterStorePayload{})
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	tampered := &Transaction{ChainID: tx.ChainID, Type: tx.Type, Nonce: tx.Nonce + 1, Data: tx.Data, R: tx.R, S: tx.S, V: tx.V}
	from, err := tampered.From()
	if err == nil && bytes.Equal(from, crypto.PubkeyToAddress(key.PublicKey).Bytes()) {
		t.Fatalf("tampered transaction recovered the original sender")
	}
}

func TestRegisterCustomerPayloadWithoutBalance(t *testing.T) {
	tx, err := NewTransaction(1, TxTypeRegisterCustomer, 0, &RegisterCustomerPayload{Tier: 0})
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	var payload RegisterCustomerPayload
	if err := tx.DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Balance != nil {
		t.Fatalf("expected nil balance, got %v", payload.Balance)
	}
}
