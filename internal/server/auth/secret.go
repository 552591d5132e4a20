package auth

import (
	"github.com/dmitrijs2005/librarian/internal/cryptox"
)

// SecretVerifier checks a presented secret against the stored hash.
type SecretVerifier interface {
	Verify(storedHash, presented string) bool
}

// SecretHasher produces the stored form of a new secret.
type SecretHasher interface {
	Hash(secret string) string
}

// Argon2 hashes secrets with salted argon2id.
type Argon2 struct{}

func (Argon2) Hash(secret string) string {
	return cryptox.HashSecret(secret)
}

// Verify returns false for malformed hashes as well as mismatches.
func (Argon2) Verify(storedHash, presented string) bool {
	ok, err := cryptox.VerifySecret(storedHash, presented)
	if err != nil {
		return false
	}
	return ok
}
