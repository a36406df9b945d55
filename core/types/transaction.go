package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// TxType defines the registry operation a transaction requests.
type TxType byte

const (
	TxTypeRegisterCustomer   TxType = 0x01 // Caller registers itself as a customer
	TxTypeRegisterStore      TxType = 0x02 // Caller registers itself as a store
	TxTypeUpdateCustomerTier TxType = 0x03 // Owner changes a customer's tier
	TxTypeDeleteCustomer     TxType = 0x04 // Owner removes a customer record
	TxTypeDeleteStore        TxType = 0x05 // Owner removes a store record
)

// ErrMissingSignature is returned when recovering the sender of an unsigned
// transaction.
var ErrMissingSignature = errors.New("transaction: missing signature")

// String returns a stable name used in logs and metrics.
func (t TxType) String() string {
	switch t {
	case TxTypeRegisterCustomer:
		return "register_customer"
	case TxTypeRegisterStore:
		return "register_store"
	case TxTypeUpdateCustomerTier:
		return "update_customer_tier"
	case TxTypeDeleteCustomer:
		return "delete_customer"
	case TxTypeDeleteStore:
		return "delete_store"
	default:
		return fmt.Sprintf("unknown_%d", byte(t))
	}
}

// RegisterCustomerPayload is the body of a TxTypeRegisterCustomer transaction.
// Balance is only honoured by registries configured with customer balances.
type RegisterCustomerPayload struct {
	Tier    uint8
	Balance *uint256.Int `rlp:"optional"`
}

// RegisterStorePayload is the (empty) body of a TxTypeRegisterStore transaction.
type RegisterStorePayload struct{}

// UpdateCustomerTierPayload is the body of a TxTypeUpdateCustomerTier transaction.
type UpdateCustomerTierPayload struct {
	Customer [20]byte
	Tier     uint8
}

// DeleteCustomerPayload is the body of a TxTypeDeleteCustomer transaction.
type DeleteCustomerPayload struct {
	Customer [20]byte
}

// DeleteStorePayload is the body of a TxTypeDeleteStore transaction.
type DeleteStorePayload struct {
	Store [20]byte
}

// Transaction is a signed request to mutate registry state. The sender is never
// transmitted; it is recovered from the signature.
type Transaction struct {
	ChainID uint64 `json:"chainId"`
	Type    TxType `json:"type"`
	Nonce   uint64 `json:"nonce"`
	Data    []byte `json:"data"`

	// Signature
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

// NewTransaction encodes payload with RLP and returns an unsigned transaction.
func NewTransaction(chainID uint64, txType TxType, nonce uint64, payload interface{}) (*Transaction, error) {
	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return &Transaction{ChainID: chainID, Type: txType, Nonce: nonce, Data: data}, nil
}

// DecodePayload decodes the RLP body into out.
func (tx *Transaction) DecodePayload(out interface{}) error {
	if err := rlp.DecodeBytes(tx.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", tx.Type, err)
	}
	return nil
}

// Hash returns the keccak256 signing hash over the chain id, type, nonce and
// payload.
func (tx *Transaction) Hash() ([]byte, error) {
	txData := struct {
		ChainID uint64
		Type    uint8
		Nonce   uint64
		Data    []byte
	}{tx.ChainID, uint8(tx.Type), tx.Nonce, tx.Data}

	b, err := rlp.EncodeToBytes(&txData)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(b), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the 20-byte sender address from the signature.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, ErrMissingSignature
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 || !tx.V.IsUint64() || tx.V.Uint64() < 27 || tx.V.Uint64() > 28 {
		return nil, fmt.Errorf("transaction: malformed signature")
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// Receipt summarises a committed transaction.
type Receipt struct {
	TxHash [32]byte
	Type   TxType
	Sender [20]byte
	Nonce  uint64
	Height uint64
	Root   [32]byte
	Events []Event
}
