package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eduportal/internal/models"
)

var ErrInvalidRememberToken = errors.New("invalid remember token")

// RememberClaims identify the principal a persistent-login token belongs
// to. Restoration never writes session state itself; the holder of a
// valid token is re-established through the session manager like any
// other login.
type RememberClaims struct {
	Kind models.PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

// IssueRememberToken signs a persistent-login token for a principal
func IssueRememberToken(secret string, kind models.PrincipalKind, principalID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RememberClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign remember token: %w", err)
	}
	return signed, nil
}

// ParseRememberToken verifies a persistent-login token and returns the
// principal kind and ID it was issued for.
func ParseRememberToken(secret, tokenString string) (models.PrincipalKind, int64, error) {
	claims := &RememberClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.KindNone, 0, ErrInvalidRememberToken
	}

	if claims.Kind != models.KindStudent && claims.Kind != models.KindTeacher {
		return models.KindNone, 0, ErrInvalidRememberToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return models.KindNone, 0, ErrInvalidRememberToken
	}

	return claims.Kind, id, nil
}
