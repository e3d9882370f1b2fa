package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes plain with bcrypt.  cost comes from BCRYPT_COST; tests
// pass bcrypt.MinCost to stay fast.
func HashPassword(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash.  A malformed hash is a
// mismatch.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
