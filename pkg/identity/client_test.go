package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, handler func(method string, body map[string]any) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("X-Goog-Api-Key = %q, want test-key", got)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		status, resp := handler(r.URL.Path, body)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRealClient_TransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient("SECRET-KEY-123", addr).SignInWithPassword(context.Background(), "a@b.c", "pw")
	if err == nil {
		t.Fatal("expected an error from a closed server")
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Errorf("error leaks the api key: %v", err)
	}
}

func providerError(msg string) map[string]any {
	return map[string]any{"error": map[string]any{"code": 400, "message": msg}}
}

func TestRealClient_SignUp(t *testing.T) {
	srv := newTestServer(t, func(path string, body map[string]any) (int, any) {
		if path != "/accounts:signUp" {
			t.Errorf("unexpected path %q", path)
		}
		if body["email"] != "a@b.c" || body["password"] != "secret1" || body["returnSecureToken"] != true {
			t.Errorf("unexpected body %v", body)
		}
		return 200, map[string]any{"localId": "uid-1", "email": "a@b.c", "idToken": "tok"}
	})

	acc, err := NewClient("test-key", srv.URL).SignUp(context.Background(), "a@b.c", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.UserID != "uid-1" || !acc.IsNewUser {
		t.Errorf("unexpected account %+v", acc)
	}
}

func TestRealClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"EMAIL_EXISTS", CodeEmailAlreadyInUse},
		{"EMAIL_NOT_FOUND", CodeUserNotFound},
		{"INVALID_PASSWORD", CodeWrongPassword},
		{"INVALID_LOGIN_CREDENTIALS", CodeInvalidCredential},
		{"INVALID_EMAIL", CodeInvalidEmail},
		{"WEAK_PASSWORD : Password should be at least 6 characters", CodeWeakPassword},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled", CodeTooManyRequests},
		{"SOMETHING_NEW", CodeInternal},
		{"", CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			srv := newTestServer(t, func(string, map[string]any) (int, any) {
				return 400, providerError(tt.message)
			})
			_, err := NewClient("test-key", srv.URL).SignInWithPassword(context.Background(), "a@b.c", "pw")
			if got := CodeOf(err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestRealClient_SignInWithIdP(t *testing.T) {
	srv := newTestServer(t, func(path string, body map[string]any) (int, any) {
		if path != "/accounts:signInWithIdp" {
			t.Errorf("unexpected path %q", path)
		}
		form, err := url.ParseQuery(body["postBody"].(string))
		if err != nil {
			t.Fatalf("bad postBody: %v", err)
		}
		if form.Get("id_token") != "google-id-token" || form.Get("providerId") != ProviderGoogle {
			t.Errorf("unexpected postBody %v", form)
		}
		if body["requestUri"] != "http://localhost/cb" {
			t.Errorf("unexpected requestUri %v", body["requestUri"])
		}
		return 200, map[string]any{"localId": "uid-2", "email": "g@b.c", "fullName": "Gabi", "isNewUser": true}
	})

	acc, err := NewClient("test-key", srv.URL).SignInWithIdP(context.Background(), ProviderGoogle, "google-id-token", "http://localhost/cb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.UserID != "uid-2" || acc.DisplayName != "Gabi" || !acc.IsNewUser {
		t.Errorf("unexpected account %+v", acc)
	}
}

func TestRealClient_SignInWithIdP_NeedConfirmation(t *testing.T) {
	srv := newTestServer(t, func(string, map[string]any) (int, any) {
		return 200, map[string]any{"email": "a@b.c", "needConfirmation": true}
	})

	_, err := NewClient("test-key", srv.URL).SignInWithIdP(context.Background(), ProviderApple, "tok", "http://localhost/cb")
	if CodeOf(err) != CodeAccountExistsWithDifferentCredential {
		t.Errorf("expected %s, got %v", CodeAccountExistsWithDifferentCredential, err)
	}
}

func TestRealClient_NotConfigured(t *testing.T) {
	_, err := NewClient("", "").SignUp(context.Background(), "a@b.c", "secret1")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if CodeOf(err) != "" {
		t.Error("ErrNotConfigured should not carry an auth code")
	}
}
