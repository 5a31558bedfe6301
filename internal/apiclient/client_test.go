package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coverledger/internal/trust"
)

const testSecret = "client-test-secret-0123456789abcdef"

func TestIdentityPropagation(t *testing.T) {
	var gotAssertion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAssertion = r.Header.Get(trust.Header)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": 7, "email": "user@x.test", "role": "WORKER"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, testSecret)

	t.Run("acting user is signed into the header", func(t *testing.T) {
		ctx := AsUser(context.Background(), "user@x.test")
		if _, err := c.GetUser(ctx, 7); err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if gotAssertion == "" {
			t.Fatal("no caller assertion sent")
		}

		// The data tier verifies with the same shared secret.
		email, err := trust.NewSigner(testSecret, 0).Parse(gotAssertion)
		if err != nil {
			t.Fatalf("parse assertion: %v", err)
		}
		if email != "user@x.test" {
			t.Errorf("subject = %q, want user@x.test", email)
		}
	})

	t.Run("assertion does not verify under another secret", func(t *testing.T) {
		ctx := AsUser(context.Background(), "user@x.test")
		if _, err := c.GetUser(ctx, 7); err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if _, err := trust.NewSigner("some-other-secret-value-entirely", 0).Parse(gotAssertion); err == nil {
			t.Error("assertion accepted under the wrong secret")
		}
	})

	t.Run("anonymous requests carry no header", func(t *testing.T) {
		if _, err := c.GetUser(context.Background(), 7); err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if gotAssertion != "" {
			t.Errorf("unexpected assertion on anonymous request: %q", gotAssertion)
		}
	})
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "not your policy"})
	}))
	defer srv.Close()

	c := New(srv.URL, testSecret)

	_, err := c.GetPolicy(AsUser(context.Background(), "user@x.test"), 12)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("IsStatus(403) = false for %v", err)
	}
	apiErr := err.(*APIError)
	if apiErr.Message != "not your policy" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestServerErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, testSecret)

	err := c.DeleteUser(context.Background(), 3)
	if !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
}
