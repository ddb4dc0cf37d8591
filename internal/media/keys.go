package media

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// KeyProvider supplies the local user's private unwrapping key.
// A (nil, nil) return means no key material is available for this
// account, which is the missing-key failure path, not an error.
type KeyProvider interface {
	PrivateKey() (*rsa.PrivateKey, error)
}

// KeyStrategy resolves a base64 wrapped key into the symmetric content
// key. The strategy is fixed at pipeline construction; the decrypt path
// never branches between production and test behavior per call.
type KeyStrategy interface {
	ContentKey(wrappedB64 string) ([]byte, error)
}

// WrappedKeyStrategy is the production strategy: the wrapped key is the
// content key encrypted under this user's RSA public key (OAEP-SHA256).
type WrappedKeyStrategy struct {
	Provider KeyProvider
}

func (s WrappedKeyStrategy) ContentKey(wrappedB64 string) ([]byte, error) {
	if wrappedB64 == "" {
		return nil, failure(ReasonMissingKey, errors.New("no wrapped key for this user"))
	}
	wrapped, err := base64.StdEncoding.DecodeString(wrappedB64)
	if err != nil {
		return nil, failure(ReasonUnwrap, fmt.Errorf("decode wrapped key: %w", err))
	}
	if s.Provider == nil {
		return nil, failure(ReasonMissingKey, errors.New("no key provider"))
	}
	priv, err := s.Provider.PrivateKey()
	if err != nil {
		return nil, failure(ReasonMissingKey, fmt.Errorf("load private key: %w", err))
	}
	if priv == nil {
		return nil, failure(ReasonMissingKey, errors.New("no private key available"))
	}
	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, failure(ReasonUnwrap, err)
	}
	return key, nil
}

// RawKeyStrategy is an explicit test-harness mode: the wrapped key field
// carries the base64 content key itself, no unwrap. It exists only for
// fixtures and local loops and must never be selected in production
// wiring.
type RawKeyStrategy struct{}

func (RawKeyStrategy) ContentKey(wrappedB64 string) ([]byte, error) {
	if wrappedB64 == "" {
		return nil, failure(ReasonMissingKey, errors.New("no key in raw-key mode"))
	}
	key, err := base64.StdEncoding.DecodeString(wrappedB64)
	if err != nil {
		return nil, failure(ReasonUnwrap, fmt.Errorf("decode raw key: %w", err))
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, failure(ReasonUnwrap, fmt.Errorf("raw key length %d", len(key)))
	}
}
