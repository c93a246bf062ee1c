package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the user a verified token speaks for.
type Identity struct {
	UserID string
	Name   string
}

// Verifier validates HMAC-signed bearer tokens issued by the
// authentication collaborator.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type tokenClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func (v *Verifier) VerifyToken(token string) (*Identity, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID := claims.Subject
	if userID == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &Identity{UserID: userID, Name: claims.Name}, nil
}
