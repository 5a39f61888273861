package txmodel

// AccountData is the value stored in the account trie at an address.
type AccountData struct {
	Nonce    uint64
	Balance  uint64
	CodeHash []byte
}

// NewAccountData materializes a fresh account at the configured initial
// balance. A single configurable value replaces the original's hardcoded
// 10000-for-EOA/0-for-contract split — every account starts the same way
// regardless of how it is later used.
func NewAccountData(initialBalance uint64) AccountData {
	return AccountData{Nonce: 0, Balance: initialBalance}
}

// IsContract reports whether the account has deployed code.
func (a AccountData) IsContract() bool {
	return len(a.CodeHash) > 0
}
