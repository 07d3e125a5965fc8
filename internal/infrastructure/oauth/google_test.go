package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, userInfo map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userInfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		UserInfoURL: srv.URL + "/userinfo",
	})
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider(GoogleConfig{ClientID: "client", RedirectURL: "http://localhost/cb"})

	u, err := url.Parse(p.AuthCodeURL("state-1"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if u.Host != "accounts.google.com" {
		t.Errorf("unexpected host %q", u.Host)
	}
	if q.Get("state") != "state-1" || q.Get("client_id") != "client" {
		t.Errorf("unexpected query %v", q)
	}
	if q.Get("scope") != "profile email" {
		t.Errorf("unexpected scope %q", q.Get("scope"))
	}
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := newFakeGoogle(t, map[string]any{
		"sub":            "g-123",
		"email":          "jane@example.com",
		"email_verified": true,
		"name":           "Jane Doe",
		"picture":        "https://example.com/jane.png",
	})

	profile, err := newTestProvider(srv).Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if profile.Provider != "google" || profile.Subject != "g-123" || profile.Email != "jane@example.com" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.Name != "Jane Doe" || profile.Picture != "https://example.com/jane.png" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestGoogleProvider_ExchangeBadCode(t *testing.T) {
	srv := newFakeGoogle(t, map[string]any{})
	if _, err := newTestProvider(srv).Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGoogleProvider_UnverifiedEmail(t *testing.T) {
	srv := newFakeGoogle(t, map[string]any{
		"sub":            "g-123",
		"email":          "jane@example.com",
		"email_verified": false,
	})
	if _, err := newTestProvider(srv).Exchange(context.Background(), "good-code"); err == nil {
		t.Fatalf("expected error for unverified email")
	}
}
