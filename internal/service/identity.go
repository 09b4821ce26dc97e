package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"beerzone-pos/internal/model"
)

// Identity errors
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingUser  = errors.New("missing subject in claims")
)

// identityClaims is what the identity provider signs.
type identityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// IdentityVerifier checks bearer tokens issued by the external identity
// provider. The service only needs "is a user signed in".
type IdentityVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewIdentityVerifier creates a verifier for HS256 tokens signed with secret.
// An empty issuer accepts any issuer.
func NewIdentityVerifier(secret, issuer string) *IdentityVerifier {
	return &IdentityVerifier{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Verify validates a raw token (with or without the "Bearer " prefix).
func (v *IdentityVerifier) Verify(raw string) (*model.Identity, error) {
	tokenString := strings.TrimSpace(raw)
	if len(tokenString) >= 6 && strings.EqualFold(tokenString[:6], "bearer") {
		tokenString = strings.TrimSpace(tokenString[6:])
	}
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(v.now)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &identityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*identityClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingUser
	}

	id := &model.Identity{UserID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Issue signs a token for userID. Used by tests and local tooling; production
// tokens come from the identity provider.
func (v *IdentityVerifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
