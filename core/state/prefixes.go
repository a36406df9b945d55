package state

import "encoding/binary"

var (
	ledgerHeightKeyBytes = []byte("ledger/height")
	ledgerRootKeyBytes   = []byte("ledger/root")
	ledgerNoncePrefix    = []byte("ledger/nonce/")
	ledgerQuotaPrefix    = []byte("ledger/quota/")
)

// LedgerHeightKey stores the number of committed transactions. It lives in the
// raw database rather than in the trie.
func LedgerHeightKey() []byte {
	return append([]byte(nil), ledgerHeightKeyBytes...)
}

// LedgerRootKey stores the last committed trie root in the raw database.
func LedgerRootKey() []byte {
	return append([]byte(nil), ledgerRootKeyBytes...)
}

// LedgerNonceKey returns the trie key tracking the next nonce of addr.
func LedgerNonceKey(addr []byte) []byte {
	buf := make([]byte, len(ledgerNoncePrefix)+len(addr))
	copy(buf, ledgerNoncePrefix)
	copy(buf[len(ledgerNoncePrefix):], addr)
	return buf
}

// LedgerQuotaKey returns the trie key tracking the transaction quota counters
// of addr.
func LedgerQuotaKey(addr []byte) []byte {
	buf := make([]byte, len(ledgerQuotaPrefix)+len(addr))
	copy(buf, ledgerQuotaPrefix)
	copy(buf[len(ledgerQuotaPrefix):], addr)
	return buf
}

// EncodeHeight encodes a height for raw database storage.
func EncodeHeight(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return buf[:]
}

// DecodeHeight decodes a height written by EncodeHeight. Malformed values decode
// to zero.
func DecodeHeight(raw []byte) uint64 {
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}
