package auth

import "testing"

func TestHashCredentialRoundTrips(t *testing.T) {
	m := NewCredentialManager(bcryptTestCost)

	credential, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("unexpected error generating credential: %v", err)
	}

	hash, err := m.HashCredential(credential)
	if err != nil {
		t.Fatalf("unexpected error hashing credential: %v", err)
	}

	if !m.VerifyCredential(credential, hash) {
		t.Fatal("expected the original credential to verify against its own hash")
	}
}

func TestVerifyCredentialRejectsWrongValue(t *testing.T) {
	m := NewCredentialManager(bcryptTestCost)

	hash, err := m.HashCredential("service-credential-one")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.VerifyCredential("service-credential-two", hash) {
		t.Fatal("expected a mismatched credential to fail verification")
	}
}

// bcryptTestCost keeps the work factor low enough that hashing in tests
// does not dominate the suite's runtime.
const bcryptTestCost = 4
