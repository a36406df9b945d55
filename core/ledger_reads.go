package core

import (
	"github.com/ethereum/go-ethereum/common"

	"foodcourt/core/state"
	"foodcourt/native/participants"
)

// Ledger reads observe the last committed state: Submit holds the lock from
// execution through commit or revert.

var _ participants.Reader = (*Ledger)(nil)

// GetCustomer implements participants.Reader.
func (l *Ledger) GetCustomer(addr [20]byte) (*participants.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.GetCustomer(addr)
}

// GetUserTier implements participants.Reader.
func (l *Ledger) GetUserTier(addr [20]byte) (participants.Tier, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.GetUserTier(addr)
}

// GetStore implements participants.Reader.
func (l *Ledger) GetStore(addr [20]byte) (*participants.Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.GetStore(addr)
}

// StoreExists implements participants.Reader.
func (l *Ledger) StoreExists(addr [20]byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.StoreExists(addr)
}

// Nonce returns the nonce the next transaction from addr must carry.
func (l *Ledger) Nonce(addr [20]byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var nonce uint64
	if _, err := l.manager.KVGet(state.LedgerNonceKey(addr[:]), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// Height returns the number of committed transactions.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Root returns the committed state root.
func (l *Ledger) Root() common.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.manager.Root()
}

func (l *Ledger) ChainID() uint64 {
	return l.chainID
}

func (l *Ledger) Owner() [20]byte {
	return l.registry.Owner()
}

func (l *Ledger) Profile() participants.Profile {
	return l.registry.Profile()
}
