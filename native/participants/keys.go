package participants

var (
	customerPrefix = []byte("participants/customer/")
	storePrefix    = []byte("participants/store/")
	metaKeyBytes   = []byte("participants/meta")
)

func customerKey(addr [20]byte) []byte {
	buf := make([]byte, len(customerPrefix)+len(addr))
	copy(buf, customerPrefix)
	copy(buf[len(customerPrefix):], addr[:])
	return buf
}

func storeKey(addr [20]byte) []byte {
	buf := make([]byte, len(storePrefix)+len(addr))
	copy(buf, storePrefix)
	copy(buf[len(storePrefix):], addr[:])
	return buf
}

func metaKey() []byte {
	return append([]byte(nil), metaKeyBytes...)
}
