// Package keyring loads the local user's RSA private key from a PEM
// file provisioned out of band. It is the production KeyProvider behind
// the media decryption pipeline.
package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"
)

// FileProvider reads an RSA private key from a PEM file once and caches
// it. A missing or empty path yields (nil, nil): "no key available",
// which the pipeline surfaces as a missing-key decryption failure.
type FileProvider struct {
	Path string

	mu     sync.Mutex
	loaded bool
	key    *rsa.PrivateKey
	err    error
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

func (p *FileProvider) PrivateKey() (*rsa.PrivateKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.key, p.err
	}
	p.loaded = true
	p.key, p.err = p.load()
	return p.key, p.err
}

func (p *FileProvider) load() (*rsa.PrivateKey, error) {
	if p.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes a PEM-encoded RSA private key, accepting both
// PKCS#8 and PKCS#1 encodings.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block in key file")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key file holds a %T, want RSA", key)
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// EncodePrivateKey renders a key as PKCS#8 PEM, the format the
// provisioning tooling writes.
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// Wrap encrypts a symmetric content key under a recipient's public key
// (RSA-OAEP-SHA256) and returns it base64 encoded, matching the
// wrapped_keys entries the backend attaches to encrypted media. Used by
// the loopback dev server and fixtures.
func Wrap(pub *rsa.PublicKey, contentKey []byte) (string, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, contentKey, nil)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}
