package api

import (
	"context"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClient_SendsKeyAndAccept(t *testing.T) {
	t.Parallel()

	type seen struct{ path, query, key, accept string }
	reqs := make(chan seen, 1)
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- seen{r.URL.Path, r.URL.RawQuery, r.Header.Get("X-API-KEY"), r.Header.Get("Accept")}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer s.Close()

	c, err := NewClient(s.URL+"/", Options{APIKey: "secret", InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	body, err := c.AggregatedDashboard(context.Background(), "default")
	if err != nil {
		t.Fatalf("AggregatedDashboard: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("body=%q", body)
	}
	got := <-reqs
	if got.path != "/proxy/network/v2/api/site/default/aggregated-dashboard" {
		t.Fatalf("path=%q", got.path)
	}
	if got.query != "historySeconds=3" {
		t.Fatalf("query=%q", got.query)
	}
	if got.key != "secret" || got.accept != "application/json" {
		t.Fatalf("headers key=%q accept=%q", got.key, got.accept)
	}
}

func TestClient_StatusErrorIncludesBody(t *testing.T) {
	t.Parallel()

	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"booting"}`))
	}))
	defer s.Close()

	c, err := NewClient(s.URL, Options{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.AggregatedDashboard(context.Background(), "default")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err=%v, want StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("code=%d", se.StatusCode)
	}
	got := err.Error()
	if !strings.Contains(got, "503") || !strings.Contains(got, `"error":"booting"`) {
		t.Fatalf("unexpected error string: %q", got)
	}
}

func TestClient_VerifiesWhenInsecureDisabled(t *testing.T) {
	t.Parallel()

	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer s.Close()

	c, err := NewClient(s.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.AggregatedDashboard(context.Background(), "default")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err=%v, want NetworkError", err)
	}
}

func TestClient_TrustsConfiguredCA(t *testing.T) {
	t.Parallel()

	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer s.Close()

	caPath := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: s.Certificate().Raw})
	if err := os.WriteFile(caPath, block, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := NewClient(s.URL, Options{CAFile: caPath})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.AggregatedDashboard(context.Background(), "default"); err != nil {
		t.Fatalf("AggregatedDashboard: %v", err)
	}
}

func TestClient_NetworkErrorWhenUnreachable(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()

	c, err := NewClient(url, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.AggregatedDashboard(context.Background(), "default")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err=%v, want NetworkError", err)
	}
}

func TestNewClient_RejectsBadInputs(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("https://x", Options{CAFile: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Fatalf("expected ca file error")
	}
	if _, err := NewClient("https://x", Options{Proxy: "ftp://nope"}); err == nil {
		t.Fatalf("expected proxy scheme error")
	}
	if _, err := NewClient("https://x", Options{Proxy: "socks5://127.0.0.1:1080"}); err != nil {
		t.Fatalf("socks5 proxy: %v", err)
	}
}
