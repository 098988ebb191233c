package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that an address is a base58-encoded 32-byte ed25519
// public key on the curve. Program-derived addresses are off-curve and are
// rejected; only keypair-backed wallets can be tracked.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("empty address")
	}

	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode base58: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	if !isOnCurve(raw) {
		return fmt.Errorf("address is not on the ed25519 curve")
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
