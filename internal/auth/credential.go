package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCredentialCost is the bcrypt work factor applied to stored
// operator service credentials.
const DefaultCredentialCost = 12

// CredentialManager hashes and verifies the long-lived opaque service
// credentials operators exchange for short-lived access tokens. Unlike
// end-user passwords, these are machine-generated (GenerateOpaqueToken)
// and never validated for strength.
type CredentialManager struct {
	cost int
}

// NewCredentialManager constructs a CredentialManager at the given bcrypt
// cost, falling back to DefaultCredentialCost when cost is out of range.
func NewCredentialManager(cost int) *CredentialManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCredentialCost
	}
	return &CredentialManager{cost: cost}
}

// HashCredential produces the value to persist for a newly issued
// operator credential.
func (m *CredentialManager) HashCredential(credential string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), m.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hashed), nil
}

// VerifyCredential reports whether credential matches the stored hash.
func (m *CredentialManager) VerifyCredential(credential, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)) == nil
}
