// Package account handles base58 account addresses for vaults and owners.
package account

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLen is the raw byte length of every account address.
const AddressLen = 32

// Address validation errors.
var (
	// ErrInvalidAddress is returned when an address is not base58 of 32 bytes.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNotOnCurve is returned when an owner key does not decode to a
	// valid ed25519 curve point and therefore cannot sign.
	ErrNotOnCurve = errors.New("owner key is not a valid ed25519 point")
)

// Validate checks that addr is a base58 string decoding to exactly 32 bytes.
func Validate(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if len(raw) != AddressLen {
		return fmt.Errorf("%w: decoded to %d bytes", ErrInvalidAddress, len(raw))
	}
	return nil
}

// ValidateOwner checks that addr is a valid address AND lies on the ed25519
// curve. Vault addresses are derived off-curve; owner keys must be signable.
func ValidateOwner(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != AddressLen {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if !isOnCurve(raw) {
		return ErrNotOnCurve
	}
	return nil
}

// DeriveVaultAddress derives a deterministic vault address from the owner
// address, the vault kind, and a nonce. The result is the base58 encoding of
// SHA256("vault|<kind>|<owner>|<nonce>"), 32 bytes, generally off-curve.
func DeriveVaultAddress(owner, kind string, nonce uint64) string {
	data := fmt.Sprintf("vault|%s|%s|%d", kind, owner, nonce)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// isOnCurve reports whether a 32-byte point is a valid ed25519 curve point.
func isOnCurve(point []byte) bool {
	if len(point) != AddressLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
