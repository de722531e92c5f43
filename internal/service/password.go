package service

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost keeps hashing time consistent across deployments.
const DefaultBcryptCost = 10

// HashPassword produces a salted one-way digest of the plaintext.
func HashPassword(plain string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext rehashes to the stored digest.
func CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
