package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleOperator = "operator"
	Issuer       = "emberchain"
)

var ErrInvalidToken = errors.New("invalid operator token")

// OperatorClaims authorize privileged node calls such as forcing a
// consensus round or a reward distribution.
type OperatorClaims struct {
	ChainID string   `json:"chainID"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *OperatorClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// TokenVerifier checks operator tokens. Tokens must be signed with HS256
// or EdDSA, carry an expiry, come from Issuer and name ChainID when it is
// set.
type TokenVerifier struct {
	KeyProvider KeyProvider
	ChainID     string
	Now         func() time.Time
}

func (v *TokenVerifier) VerifyToken(tokenString string) (*OperatorClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
	}
	if v.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(v.Now))
	}
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		return v.KeyProvider.GetKey(kid)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.ChainID != "" && claims.ChainID != v.ChainID {
		return nil, fmt.Errorf("%w: issued for chain %q", ErrInvalidToken, claims.ChainID)
	}
	return claims, nil
}

// IssueToken signs an HS256 operator token valid for ttl.
func IssueToken(secret []byte, subject, chainID string, roles []string, ttl time.Duration, now time.Time) (string, error) {
	claims := OperatorClaims{
		ChainID: chainID,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
