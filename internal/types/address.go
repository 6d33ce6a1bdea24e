package types

// Address identifies an account or a contract instance. Addresses are opaque
// to the contracts: they are compared byte for byte and never parsed.
type Address string

// String returns the address as a plain string.
func (a Address) String() string {
	return string(a)
}

// IsEmpty reports whether the address is unset.
func (a Address) IsEmpty() bool {
	return a == ""
}
