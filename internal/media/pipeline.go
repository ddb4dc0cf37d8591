// Package media converts an encrypted attachment descriptor into
// displayable plaintext bytes. The pipeline is stateless: fetch the
// ciphertext, resolve the content key through the configured strategy,
// validate the nonce, open the AEAD, tag the result with a MIME type.
package media

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NonceSize is the AES-GCM nonce length. Anything else is rejected
// before decryption is attempted.
const NonceSize = 12

// DefaultMIME is used when a descriptor does not name a content type.
const DefaultMIME = "image/jpeg"

// Descriptor carries everything needed to produce plaintext for one
// attachment. WrappedKey is the base64 wrapped content key addressed to
// the local user; empty means none was included for them.
type Descriptor struct {
	MediaID    string
	URL        string
	MIME       string
	FileName   string
	Nonce      string // base64
	WrappedKey string // base64
}

// Resource is a displayable decryption result.
type Resource struct {
	Bytes []byte
	MIME  string
	Name  string
}

// Pipeline fetches and decrypts attachments. It holds no session state;
// the key strategy is chosen once at construction. Ciphertext fetches go
// through the injected client, which must carry whatever credentials the
// backend wants on media URLs; see BearerTransport.
type Pipeline struct {
	client *http.Client
	keys   KeyStrategy
}

// BearerTransport adds the chat bearer token to every media fetch. The
// backend serves ciphertext behind the same credential as the socket.
type BearerTransport struct {
	Token string
	Base  http.RoundTripper
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Token == "" {
		return base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.Token)
	return base.RoundTrip(clone)
}

func NewPipeline(keys KeyStrategy, client *http.Client) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Pipeline{client: client, keys: keys}
}

// Decrypt runs the full pipeline for one descriptor. Every failure comes
// back as a *DecryptError with a distinct reason; nothing panics and
// nothing silently falls back to treating ciphertext as plaintext.
func (p *Pipeline) Decrypt(ctx context.Context, d Descriptor) (*Resource, error) {
	ciphertext, err := p.fetch(ctx, d.URL)
	if err != nil {
		return nil, err
	}

	key, err := p.keys.ContentKey(d.WrappedKey)
	if err != nil {
		return nil, err
	}

	nonce, err := decodeNonce(d.Nonce)
	if err != nil {
		return nil, err
	}

	plaintext, err := open(key, nonce, ciphertext)
	if err != nil {
		return nil, err
	}

	mime := d.MIME
	if mime == "" {
		mime = DefaultMIME
	}
	return &Resource{Bytes: plaintext, MIME: mime, Name: d.FileName}, nil
}

func (p *Pipeline) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, failure(ReasonFetch, errors.New("descriptor has no fetch URL"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failure(ReasonFetch, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, failure(ReasonFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, failure(ReasonFetch, fmt.Errorf("status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure(ReasonFetch, err)
	}
	return body, nil
}

func decodeNonce(nonceB64 string) ([]byte, error) {
	if nonceB64 == "" {
		return nil, failure(ReasonBadNonce, errors.New("no nonce"))
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, failure(ReasonBadNonce, err)
	}
	if len(nonce) != NonceSize {
		return nil, failure(ReasonBadNonce, fmt.Errorf("nonce is %d bytes, want %d", len(nonce), NonceSize))
	}
	return nonce, nil
}

// open performs the AEAD decryption. The ciphertext already includes the
// authentication tag appended by the server.
func open(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, failure(ReasonAuth, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, failure(ReasonAuth, err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, failure(ReasonAuth, err)
	}
	return plaintext, nil
}

// Seal is the inverse of the decrypt step, used by the loopback dev
// server and test fixtures to produce ciphertext the pipeline accepts.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("nonce is %d bytes, want %d", len(nonce), gcm.NonceSize())
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}
