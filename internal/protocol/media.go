package protocol

import "encoding/json"

// Media describes an attachment referenced by a message_new event.
// When a nonce and a wrapped key for the local user are both present the
// blob at URL is encrypted at rest and must be decrypted before display.
// Partial presence (one of the two) still routes through the decryption
// pipeline, which reports it as a failure; it is never rendered raw.
type Media struct {
	ID           string            `json:"media_id"`
	MIME         string            `json:"mime_type,omitempty"`
	URL          string            `json:"url"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	FileName     string            `json:"file_name,omitempty"`
	Nonce        string            `json:"iv,omitempty"`           // base64, must decode to 12 bytes
	WrappedKeys  map[string]string `json:"wrapped_keys,omitempty"` // recipient user id -> base64 wrapped content key
}

// WrappedKeyFor returns the wrapped content key addressed to userID, or "".
func (m *Media) WrappedKeyFor(userID string) string {
	if m == nil || m.WrappedKeys == nil {
		return ""
	}
	return m.WrappedKeys[CanonicalID(userID)]
}

// EncryptedFor reports whether the media carries any encryption metadata
// relevant to userID. Both fields present means decryptable; one present
// means broken metadata, which the decryption pipeline surfaces as an
// error rather than falling back to the raw URL.
func (m *Media) EncryptedFor(userID string) bool {
	if m == nil {
		return false
	}
	return m.Nonce != "" || m.WrappedKeyFor(userID) != ""
}

// rawMedia tolerates the legacy backend's field aliases.
type rawMedia struct {
	ID           json.RawMessage   `json:"media_id"`
	AltID        json.RawMessage   `json:"id"`
	MIME         string            `json:"mime_type"`
	AltMIME      string            `json:"media_mime"`
	URL          string            `json:"url"`
	AltURL       string            `json:"media_url"`
	ThumbnailURL string            `json:"thumbnail_url"`
	FileName     string            `json:"file_name"`
	Nonce        string            `json:"iv"`
	AltNonce     string            `json:"nonce"`
	WrappedKeys  map[string]string `json:"wrapped_keys"`
}

func (r *rawMedia) normalize() *Media {
	if r == nil {
		return nil
	}
	m := &Media{
		ID:           canonicalRawID(r.ID),
		MIME:         firstNonEmpty(r.MIME, r.AltMIME),
		URL:          firstNonEmpty(r.URL, r.AltURL),
		ThumbnailURL: r.ThumbnailURL,
		FileName:     r.FileName,
		Nonce:        firstNonEmpty(r.Nonce, r.AltNonce),
	}
	if m.ID == "" {
		m.ID = canonicalRawID(r.AltID)
	}
	if len(r.WrappedKeys) > 0 {
		m.WrappedKeys = make(map[string]string, len(r.WrappedKeys))
		for uid, k := range r.WrappedKeys {
			m.WrappedKeys[CanonicalID(uid)] = k
		}
	}
	if m.ID == "" && m.URL == "" {
		return nil
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
