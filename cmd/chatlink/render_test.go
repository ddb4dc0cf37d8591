package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkulimasmart/chatlink/internal/media"
)

// The sender names the decrypted file, but it must land inside the
// media directory no matter what path the wire carried.
func TestMediaResolvedStripsWireSuppliedPath(t *testing.T) {
	root := t.TempDir()
	mediaDir := filepath.Join(root, "media")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	r := newTermRenderer(&out, mediaDir)

	r.MediaResolved("m-1", &media.Resource{
		Bytes: []byte("payload"),
		MIME:  "image/png",
		Name:  "../escaped.bin",
	})

	if _, err := os.Stat(filepath.Join(root, "escaped.bin")); err == nil {
		t.Fatal("wire-supplied file name escaped the media dir")
	}
	got, err := os.ReadFile(filepath.Join(mediaDir, "escaped.bin"))
	if err != nil {
		t.Fatalf("sanitized file missing: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Error("saved bytes do not match the resource")
	}
}

func TestMediaResolvedFallsBackToMessageID(t *testing.T) {
	mediaDir := t.TempDir()
	var out bytes.Buffer
	r := newTermRenderer(&out, mediaDir)

	r.MediaResolved("m-2", &media.Resource{
		Bytes: []byte("x"),
		MIME:  "image/png",
		Name:  "..",
	})

	if _, err := os.Stat(filepath.Join(mediaDir, "m-2.png")); err != nil {
		t.Fatalf("fallback file missing: %v", err)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"../../.bashrc", ".bashrc"},
		{"/etc/passwd", "passwd"},
		{"..\\..\\evil.exe", "evil.exe"},
		{"nested/dir/leaf.png", "leaf.png"},
		{"..", ""},
		{".", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := safeFileName(c.in); got != c.want {
			t.Errorf("safeFileName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
