package utils

import "golang.org/x/crypto/bcrypt"

// HashAdminKey returns the bcrypt hash of a plain admin key using the
// given cost.  Used by tests; deployments normally generate the hash once
// and set it via configuration.
func HashAdminKey(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAdminKey safely compares the configured bcrypt hash with a
// presented admin key.
func VerifyAdminKey(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
