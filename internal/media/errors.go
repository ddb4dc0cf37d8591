package media

import (
	"errors"
	"fmt"
)

// Reason tags a decryption failure so the UI can show the failure class
// and logs retain the cause. The reasons are never conflated.
type Reason string

const (
	ReasonFetch      Reason = "fetch"       // network or HTTP status failure retrieving ciphertext
	ReasonMissingKey Reason = "missing-key" // no wrapped key for this user, or no private key available
	ReasonBadNonce   Reason = "bad-nonce"   // nonce missing, undecodable, or not 12 bytes
	ReasonUnwrap     Reason = "unwrap"      // asymmetric unwrap of the content key failed
	ReasonAuth       Reason = "auth"        // AEAD open failed: wrong key, tampered ciphertext, tag mismatch
)

// DecryptError is the single error type leaving the pipeline.
type DecryptError struct {
	Reason Reason
	Err    error
}

func (e *DecryptError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("media decrypt: %s", e.Reason)
	}
	return fmt.Sprintf("media decrypt: %s: %v", e.Reason, e.Err)
}

func (e *DecryptError) Unwrap() error { return e.Err }

func failure(reason Reason, err error) *DecryptError {
	return &DecryptError{Reason: reason, Err: err}
}

// ReasonOf extracts the failure reason from an error returned by the
// pipeline, or "" if the error is not a DecryptError.
func ReasonOf(err error) Reason {
	var de *DecryptError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
