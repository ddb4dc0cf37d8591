package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeEventMessageNew(t *testing.T) {
	data := []byte(`{
		"type": "message_new",
		"id": "m-1",
		"thread_id": "42",
		"sender": 7,
		"text": "hello",
		"created_at": "2026-01-02T03:04:05Z"
	}`)
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Type != EventMessageNew {
		t.Errorf("type = %q", ev.Type)
	}
	if ev.ID != "m-1" || ev.ThreadID != "42" || ev.Text != "hello" {
		t.Errorf("unexpected fields: %+v", ev)
	}
	if ev.Sender != "7" {
		t.Errorf("numeric sender not canonicalized: %q", ev.Sender)
	}
}

func TestDecodeEventLegacyAliases(t *testing.T) {
	data := []byte(`{
		"type": "message_new",
		"message_id": 15,
		"sender_id": "8",
		"content": "from the old path",
		"timestamp": "2026-01-02T03:04:05Z"
	}`)
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.ID != "15" {
		t.Errorf("message_id alias: got id %q", ev.ID)
	}
	if ev.Sender != "8" {
		t.Errorf("sender_id alias: got sender %q", ev.Sender)
	}
	if ev.Text != "from the old path" {
		t.Errorf("content alias: got text %q", ev.Text)
	}
	if ev.CreatedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("timestamp alias: got %q", ev.CreatedAt)
	}
}

func TestDecodeEventFlatMediaFields(t *testing.T) {
	data := []byte(`{
		"type": "message_new",
		"id": "m-2",
		"sender": "9",
		"has_media": true,
		"media_id": 33,
		"media_url": "/media/chat/33.bin"
	}`)
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Media == nil {
		t.Fatal("flat media fields not normalized into a bundle")
	}
	if ev.Media.ID != "33" || ev.Media.URL != "/media/chat/33.bin" {
		t.Errorf("media = %+v", ev.Media)
	}
	if ev.Media.EncryptedFor("9") {
		t.Error("plain media reported as encrypted")
	}
}

func TestDecodeEventEncryptedMediaBundle(t *testing.T) {
	data := []byte(`{
		"type": "message_new",
		"id": "m-3",
		"sender": "9",
		"media": {
			"media_id": "f00",
			"mime_type": "image/png",
			"url": "/media/chat/f00.bin",
			"iv": "AAAAAAAAAAAAAAAA",
			"wrapped_keys": {"7": "a2V5", "9": "b3RoZXI="}
		}
	}`)
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	m := ev.Media
	if m == nil {
		t.Fatal("media bundle missing")
	}
	if !m.EncryptedFor("7") {
		t.Error("encrypted media not detected for recipient 7")
	}
	if m.WrappedKeyFor("7") != "a2V5" {
		t.Errorf("wrapped key for 7 = %q", m.WrappedKeyFor("7"))
	}
	if m.WrappedKeyFor("12") != "" {
		t.Errorf("unexpected wrapped key for stranger: %q", m.WrappedKeyFor("12"))
	}
}

func TestDecodeEventNonceWithoutKeyStillEncrypted(t *testing.T) {
	data := []byte(`{
		"type": "message_new",
		"id": "m-4",
		"sender": "9",
		"media": {"media_id": "f01", "url": "/media/f01", "iv": "AAAAAAAAAAAAAAAA"}
	}`)
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if !ev.Media.EncryptedFor("7") {
		t.Error("nonce without wrapped key must still route to the decryption path")
	}
}

func TestDecodeEventUnknownType(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type": "presence_sync", "user": 3}`))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Type != EventUnknown {
		t.Errorf("type = %q, want unknown", ev.Type)
	}
	if ev.Raw != "presence_sync" {
		t.Errorf("raw discriminator = %q", ev.Raw)
	}
}

func TestDecodeEventMalformed(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type": `)); err == nil {
		t.Fatal("malformed JSON must return an error")
	}
}

func TestOutboundEncode(t *testing.T) {
	frame := NewMessage("42", "7", "hello")
	data, err := frame.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	want := map[string]any{"type": "message_new", "thread_id": "42", "sender": "7", "text": "hello"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["user"]; ok {
		t.Error("message_new must not carry a user field")
	}
}

func TestCanonicalID(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"7", "7"},
		{" 7 ", "7"},
		{float64(7), "7"},
		{float64(7.5), "7.5"},
		{json.Number("1234567890123"), "1234567890123"},
		{int64(42), "42"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := CanonicalID(tc.in); got != tc.want {
			t.Errorf("CanonicalID(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
