package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mkulimasmart/chatlink/internal/media"
	"github.com/mkulimasmart/chatlink/internal/session"
)

// termRenderer prints the thread to a terminal and writes decrypted
// attachments to disk. Media arrives asynchronously after its message;
// the placeholder line names the message id so the completion line can
// be matched by eye.
type termRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	mediaDir string
}

func newTermRenderer(out io.Writer, mediaDir string) *termRenderer {
	return &termRenderer{out: out, mediaDir: mediaDir}
}

// Local prints an optimistic echo of an outgoing message.
func (r *termRenderer) Local(sender, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s\n", sender, text)
}

func (r *termRenderer) Message(m session.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.Text != "" {
		fmt.Fprintf(r.out, "[%s] %s\n", m.Sender, m.Text)
	}
	if m.Media == nil {
		return
	}
	if m.Encrypted {
		fmt.Fprintf(r.out, "[%s] (encrypted media %s, message %s: decrypting...)\n", m.Sender, m.Media.ID, m.ID)
	} else {
		fmt.Fprintf(r.out, "[%s] (media: %s)\n", m.Sender, m.Media.URL)
	}
}

func (r *termRenderer) MediaResolved(messageID string, res *media.Resource) {
	name := safeFileName(res.Name)
	if name == "" {
		name = messageID + extFor(res.MIME)
	}
	path := filepath.Join(r.mediaDir, name)
	err := os.WriteFile(path, res.Bytes, 0600)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		fmt.Fprintf(r.out, "  (message %s: media decrypted but could not be saved: %v)\n", messageID, err)
		return
	}
	fmt.Fprintf(r.out, "  (message %s: media saved to %s)\n", messageID, path)
}

func (r *termRenderer) MediaFailed(messageID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reason := media.ReasonOf(err)
	switch reason {
	case media.ReasonFetch:
		fmt.Fprintf(r.out, "  (message %s: media could not be downloaded)\n", messageID)
	case media.ReasonMissingKey:
		fmt.Fprintf(r.out, "  (message %s: no key to decrypt this media)\n", messageID)
	case media.ReasonBadNonce, media.ReasonUnwrap, media.ReasonAuth:
		fmt.Fprintf(r.out, "  (message %s: media failed verification: %s)\n", messageID, reason)
	default:
		fmt.Fprintf(r.out, "  (message %s: media unavailable)\n", messageID)
	}
}

func (r *termRenderer) Typing(users []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(users) == 0 {
		fmt.Fprintln(r.out, "*")
		return
	}
	fmt.Fprintf(r.out, "* %s typing...\n", strings.Join(users, ", "))
}

func (r *termRenderer) ConnectionState(s session.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch s {
	case session.StateConnected:
		fmt.Fprintln(r.out, "* connected")
	case session.StateConnecting:
		fmt.Fprintln(r.out, "* connecting...")
	case session.StateDisconnected:
		fmt.Fprintln(r.out, "* disconnected")
	case session.StateExhausted:
		fmt.Fprintln(r.out, "* disconnected: gave up reconnecting, run attach again to retry")
	}
}

// safeFileName strips any path component from a wire-supplied file
// name. The sender names the file, never the directory it lands in.
func safeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}

func extFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
