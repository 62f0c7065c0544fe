package security

import "golang.org/x/crypto/bcrypt"

// HashSecret derives a salted bcrypt hash of a login secret for storage.
// Each call salts independently, so equal secrets never share a hash.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret reports whether a submitted secret matches a stored hash.
// A malformed hash counts as a mismatch; the caller treats both the
// same way.
func CheckSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
