// Package token mints and verifies the short-lived HS256 JWT an
// executor presents to the gateway as NETUNICORN_GATEWAY_TOKEN
// (spec.md §4.5, §6). Grounded on the teacher's
// pkg/workloads/keychain/key Key/KeyPolicy split: one shared signing
// key, with tokens scoped by their experiment and executor claims.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/netunicorn/netunicorn/pkg/errors"
)

// Claims identifies which experiment and executor a token was minted
// for, so the gateway can refuse a token presented against the wrong
// executor id.
type Claims struct {
	jwt.RegisteredClaims
	ExperimentID string `json:"experiment_id"`
	ExecutorID   string `json:"executor_id"`
}

// Keychain issues and verifies HS256 tokens using a single signing
// secret fixed at New; this package does not rotate it.
type Keychain struct {
	secret []byte
	ttl    time.Duration
}

func New(secret []byte, ttl time.Duration) *Keychain {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Keychain{secret: secret, ttl: ttl}
}

// Issue mints a token scoped to one (experimentID, executorID) pair,
// minted at start_executors time and valid until the keychain's TTL
// expires (spec.md §4.5).
func (k *Keychain) Issue(experimentID, executorID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
		ExperimentID: experimentID,
		ExecutorID:   executorID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(k.secret)
	if err != nil {
		return "", errors.Wrap(err)
	}
	return signed, nil
}

// Verify parses raw and confirms it was minted for (experimentID, executorID).
func (k *Keychain) Verify(raw, experimentID, executorID string) (Claims, error) {
	claims, err := k.parse(raw)
	if err != nil {
		return Claims{}, err
	}
	if claims.ExperimentID != experimentID || claims.ExecutorID != executorID {
		return Claims{}, fmt.Errorf("token does not match experiment/executor")
	}
	return claims, nil
}

// VerifyExperiment confirms raw was minted for some executor of
// experimentID, without pinning it to a particular one (the gateway's
// flag endpoints are shared by every executor in the experiment).
func (k *Keychain) VerifyExperiment(raw, experimentID string) (Claims, error) {
	claims, err := k.parse(raw)
	if err != nil {
		return Claims{}, err
	}
	if claims.ExperimentID != experimentID {
		return Claims{}, fmt.Errorf("token does not match experiment")
	}
	return claims, nil
}

func (k *Keychain) parse(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return k.secret, nil
	})
	if err != nil {
		return Claims{}, errors.Wrap(err)
	}
	return claims, nil
}
