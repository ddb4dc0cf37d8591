package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func TestFileProviderLoadsPKCS8(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pemBytes, err := EncodePrivateKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "me.pem")
	if err := os.WriteFile(path, pemBytes, 0600); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(path)
	got, err := p.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey: %v", err)
	}
	if got == nil || !got.Equal(priv) {
		t.Error("loaded key does not match written key")
	}

	// Second call hits the cache and must agree.
	again, err := p.PrivateKey()
	if err != nil || again != got {
		t.Errorf("cached load: key=%p err=%v", again, err)
	}
}

func TestFileProviderLoadsPKCS1(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
	path := filepath.Join(t.TempDir(), "legacy.pem")
	if err := os.WriteFile(path, pemBytes, 0600); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileProvider(path).PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey: %v", err)
	}
	if got == nil || !got.Equal(priv) {
		t.Error("PKCS#1 key did not load")
	}
}

func TestFileProviderMissingFileMeansNoKey(t *testing.T) {
	p := NewFileProvider(filepath.Join(t.TempDir(), "absent.pem"))
	key, err := p.PrivateKey()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if key != nil {
		t.Error("missing file should mean no key available")
	}
}

func TestFileProviderEmptyPathMeansNoKey(t *testing.T) {
	key, err := NewFileProvider("").PrivateKey()
	if err != nil || key != nil {
		t.Errorf("empty path: key=%v err=%v, want nil/nil", key, err)
	}
}

func TestFileProviderGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pem")
	if err := os.WriteFile(path, []byte("not a key"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileProvider(path).PrivateKey(); err == nil {
		t.Error("garbage key file must error, not silently yield no key")
	}
}

func TestWrapUnwrap(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	contentKey := make([]byte, 32)
	rand.Read(contentKey)

	wrapped, err := Wrap(&priv.PublicKey, contentKey)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if wrapped == "" {
		t.Fatal("empty wrapped key")
	}
}
