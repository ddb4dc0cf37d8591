package session

import "testing"

func TestChatEndpoint(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://chat.example.org", "ws://chat.example.org/ws/chat/42/?token=tok"},
		{"https://chat.example.org", "wss://chat.example.org/ws/chat/42/?token=tok"},
		{"https://chat.example.org/app", "wss://chat.example.org/app/ws/chat/42/?token=tok"},
		{"ws://127.0.0.1:9000", "ws://127.0.0.1:9000/ws/chat/42/?token=tok"},
	}
	for _, tc := range cases {
		got, err := ChatEndpoint(tc.base, "42", "tok")
		if err != nil {
			t.Errorf("ChatEndpoint(%q): %v", tc.base, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ChatEndpoint(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}

func TestChatEndpointRejectsBadScheme(t *testing.T) {
	if _, err := ChatEndpoint("ftp://host", "42", "tok"); err == nil {
		t.Error("ftp scheme accepted")
	}
}

func TestResolveMediaURL(t *testing.T) {
	cases := []struct {
		base, ref, want string
	}{
		{"http://chat.test", "/media/chat/33.bin", "http://chat.test/media/chat/33.bin"},
		{"http://chat.test", "https://cdn.test/x.bin", "https://cdn.test/x.bin"},
		{"http://chat.test", "", ""},
	}
	for _, tc := range cases {
		if got := ResolveMediaURL(tc.base, tc.ref); got != tc.want {
			t.Errorf("ResolveMediaURL(%q, %q) = %q, want %q", tc.base, tc.ref, got, tc.want)
		}
	}
}
