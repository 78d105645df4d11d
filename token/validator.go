package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissing is returned for an empty token.
	ErrMissing = errors.New("token missing")
	// ErrMalformed is returned for tokens that are not printable, whitespace-free ASCII,
	// or JWT-shaped tokens that do not parse.
	ErrMalformed = errors.New("token malformed")
	// ErrNoExpiry is returned when neither the caller nor the token declares an expiry.
	ErrNoExpiry = errors.New("token has no expiry")
	// ErrExpired is returned when the effective expiry is at or before now.
	ErrExpired = errors.New("token expired")
)

// Validator performs the offline usability check on a stored token.
// The zero value uses the wall clock.
type Validator struct {
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Valid reports whether tok can be trusted enough to ask the server about it.
// Every error from [Validator.Check] maps to false.
func (v Validator) Valid(tok string, declaredExpiry time.Time) bool {
	return v.Check(tok, declaredExpiry) == nil
}

// Check returns nil for a usable token, or the reason it is not.
func (v Validator) Check(tok string, declaredExpiry time.Time) error {
	exp, err := Expiry(tok, declaredExpiry)
	if err != nil {
		return err
	}
	if !v.now().Before(exp) {
		return ErrExpired
	}
	return nil
}

func (v Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Expiry returns the effective expiry of tok: the earlier of declaredExpiry and,
// for JWT-shaped tokens, the unverified exp claim. A zero declaredExpiry means
// "not declared".
func Expiry(tok string, declaredExpiry time.Time) (time.Time, error) {
	if tok == "" {
		return time.Time{}, ErrMissing
	}
	if !wellFormed(tok) {
		return time.Time{}, ErrMalformed
	}

	effective := declaredExpiry

	if strings.Count(tok, ".") == 2 {
		claimExp, err := unverifiedExpiry(tok)
		if err != nil {
			return time.Time{}, err
		}
		if !claimExp.IsZero() && (effective.IsZero() || claimExp.Before(effective)) {
			effective = claimExp
		}
	}

	if effective.IsZero() {
		return time.Time{}, ErrNoExpiry
	}
	return effective, nil
}

func unverifiedExpiry(tok string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return time.Time{}, ErrMalformed
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

func wellFormed(tok string) bool {
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if c <= ' ' || c >= 0x7f {
			return false
		}
	}
	return true
}
