package paystack

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyParsesSuccessfulTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref-123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{
			"reference":"ref-123","status":"success","amount":200000,"currency":"NGN",
			"paid_at":"2027-01-10T10:00:00Z","metadata":{"user_id":"9b2f3c1e-0000-4000-8000-000000000001"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test", time.Second)
	tx, err := c.Verify(context.Background(), "ref-123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tx.Status != "success" || tx.Amount != 200000 || tx.Currency != "NGN" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.UserID != "9b2f3c1e-0000-4000-8000-000000000001" {
		t.Fatalf("unexpected metadata user id: %q", tx.UserID)
	}
	if tx.PaidAt == nil {
		t.Fatalf("expected paid_at to be parsed")
	}
}

func TestVerifyReadsStringEncodedMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"reference":"r","status":"success","amount":1,"currency":"NGN","metadata":"{\"user_id\":\"u-1\"}"}}`))
	}))
	defer srv.Close()

	tx, err := NewClient(srv.URL, "sk_test", time.Second).Verify(context.Background(), "r")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tx.UserID != "u-1" {
		t.Fatalf("unexpected user id: %q", tx.UserID)
	}
}

func TestVerifyMapsUnknownReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk_test", time.Second).Verify(context.Background(), "missing")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestVerifyTreatsServerErrorAsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk_test", time.Second).Verify(context.Background(), "r")
	if err == nil || errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
