package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken = signed JWT + expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds an HS256 JWT whose subject is the user id.  The
// dev token endpoint and tests mint with this; production callers bring
// their own tokens signed with the shared secret.
func NewAccessToken(secret, userID string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
