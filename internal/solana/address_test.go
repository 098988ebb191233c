package solana

import "testing"

func TestValidateAddress(t *testing.T) {
	// System program: 32 zero bytes, a valid curve point.
	if err := ValidateAddress("11111111111111111111111111111111"); err != nil {
		t.Errorf("expected valid address, got %v", err)
	}
}

func TestValidateAddress_Empty(t *testing.T) {
	if err := ValidateAddress(""); err == nil {
		t.Error("expected error for empty address")
	}
}

func TestValidateAddress_BadBase58(t *testing.T) {
	// 0, O, I, l are not in the base58 alphabet.
	if err := ValidateAddress("0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
}

func TestValidateAddress_WrongLength(t *testing.T) {
	if err := ValidateAddress("abc"); err == nil {
		t.Error("expected error for short address")
	}
}
