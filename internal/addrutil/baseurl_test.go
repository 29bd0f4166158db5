package addrutil

import "testing"

func TestBaseURL_AddsHTTPSScheme(t *testing.T) {
	if got := BaseURL("192.168.1.1"); got != "https://192.168.1.1" {
		t.Fatalf("got=%q", got)
	}
}

func TestBaseURL_KeepsSchemeAndTrimsSlash(t *testing.T) {
	if got := BaseURL(" http://unifi.lan:8443/ "); got != "http://unifi.lan:8443" {
		t.Fatalf("got=%q", got)
	}
}

func TestBaseURL_BracketsIPv6(t *testing.T) {
	if got := BaseURL("fd00::1"); got != "https://[fd00::1]" {
		t.Fatalf("got=%q", got)
	}
}

func TestHostPort(t *testing.T) {
	cases := map[string]string{
		"https://192.168.1.1":    "192.168.1.1:443",
		"http://unifi.lan":       "unifi.lan:80",
		"https://[fd00::1]:8443": "[fd00::1]:8443",
	}
	for in, want := range cases {
		got, ok := HostPort(in)
		if !ok || got != want {
			t.Fatalf("HostPort(%q)=%q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := HostPort("::bad"); ok {
		t.Fatal("expected failure")
	}
}
