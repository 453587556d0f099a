// Package session signs the artifact handed to the hosted verification flow
// and verifies it when the host echoes it back.
package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	dErrors "idvgate/pkg/domain-errors"
)

const (
	issuer   = "idvgate"
	audience = "idv-hosted-flow"
	hkdfInfo = "idvgate session artifact v1"
	keyBytes = 32
)

// Claims binds the artifact to one subject and one correlation token.
type Claims struct {
	State string `json:"state"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session artifacts. The signing key is
// derived from the provider private key so no extra secret is configured.
type Signer struct {
	key []byte
	ttl time.Duration
}

// NewSigner derives the signing key from secret with HKDF-SHA256.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("session signer requires a secret")
	}
	key := make([]byte, keyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Signer{key: key, ttl: ttl}, nil
}

// Sign issues an artifact for subjectID carrying state, valid from now for the TTL.
func (s *Signer) Sign(subjectID, state string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session artifact: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and subject binding and returns the state
// carried by the artifact.
func (s *Signer) Verify(tokenString, subjectID string, now time.Time) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.key, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.Wrap(err, dErrors.CodeIdentityMismatch, "session artifact has expired")
		}
		return "", dErrors.Wrap(err, dErrors.CodeIdentityMismatch, "invalid session artifact")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", dErrors.New(dErrors.CodeIdentityMismatch, "invalid session artifact claims")
	}
	if claims.Subject != subjectID {
		return "", dErrors.New(dErrors.CodeIdentityMismatch, "session artifact issued for a different subject")
	}
	return claims.State, nil
}
