package issuerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRedeem_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/redeem" {
			t.Fatalf("path = %s, want /api/redeem", r.URL.Path)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req["id"] != "6f1c" {
			t.Fatalf("id = %q, want 6f1c", req["id"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"currency":"USD","amount":25.5,"status":"used"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.Redeem(ctx, "6f1c")
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if res.Currency != "USD" || res.Status != "used" {
		t.Fatalf("unexpected response: %+v", res)
	}
	if res.Amount.String() != "25.5" {
		t.Fatalf("amount = %s, want 25.5", res.Amount.String())
	}
}

func TestRedeem_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.Redeem(ctx, "6f1c")
	if err != ErrNotFound {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestRedeem_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.Redeem(context.Background(), "6f1c")
	if err == nil || err == ErrNotFound {
		t.Fatalf("expected generic error for 500, got %v", err)
	}
}

func TestScan(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/nfc" {
			t.Fatalf("path = %s, want /api/nfc", r.URL.Path)
		}
		_, _ = w.Write([]byte("6f1c\n"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	id, err := client.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if id != "6f1c" {
		t.Fatalf("id = %q, want 6f1c", id)
	}
}

func TestScan_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.Scan(context.Background())
	if err != ErrNoPayload {
		t.Fatalf("error = %v, want ErrNoPayload", err)
	}
}

func TestNewClient_AddsScheme(t *testing.T) {
	c := NewClient("localhost:8080/")
	if !strings.HasPrefix(c.baseURL, "http://") || strings.HasSuffix(c.baseURL, "/") {
		t.Fatalf("baseURL = %q, want http://localhost:8080", c.baseURL)
	}
}
