package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contact-sync/internal/config"
	"github.com/contact-sync/internal/retry"
	"github.com/contact-sync/internal/types"
)

func newTestClient(baseURL string) *HTTPClient {
	c := NewHTTPClient(&config.DirectoryConfig{
		BaseURL:           baseURL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
	})
	c.retryCfg = &retry.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return c
}

func memberFixture(phone string) types.DirectoryMember {
	return types.DirectoryMember{
		PhoneNumber:   phone,
		UserID:        "user-1",
		Handle:        "ana_v",
		WalletAddress: "0x00000000000000000000000000000000000000aa",
	}
}

func TestLookupPhonesSuccess(t *testing.T) {
	var gotRequest lookupRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/directory/lookup" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(lookupResponse{
			Members: []types.DirectoryMember{memberFixture("0414-123-4567")},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	members, err := client.LookupPhones(context.Background(), []string{"0414-123-4567", "+14155552671"})
	if err != nil {
		t.Fatalf("LookupPhones() error = %v", err)
	}

	if len(gotRequest.PhoneNumbers) != 2 {
		t.Errorf("request carried %d phones, want 2", len(gotRequest.PhoneNumbers))
	}
	if len(members) != 1 {
		t.Fatalf("LookupPhones() = %d members, want 1", len(members))
	}
	if members[0].Handle != "ana_v" {
		t.Errorf("Handle = %q, want %q", members[0].Handle, "ana_v")
	}
}

func TestLookupPhonesEmptyBatch(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	members, err := client.LookupPhones(context.Background(), nil)
	if err != nil {
		t.Fatalf("LookupPhones(nil) error = %v", err)
	}
	if members != nil {
		t.Errorf("LookupPhones(nil) = %v, want no request and no members", members)
	}
}

func TestLookupPhonesRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(lookupResponse{
			Members: []types.DirectoryMember{memberFixture("+14155552671")},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	members, err := client.LookupPhones(context.Background(), []string{"+14155552671"})
	if err != nil {
		t.Fatalf("LookupPhones() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
	if len(members) != 1 {
		t.Errorf("LookupPhones() = %d members after retry, want 1", len(members))
	}
}

func TestLookupPhonesExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.LookupPhones(context.Background(), []string{"+14155552671"}); err == nil {
		t.Fatal("LookupPhones() expected an error")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d calls, want all 3 attempts", got)
	}
}

func TestLookupPhonesDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.LookupPhones(context.Background(), []string{"+14155552671"}); err == nil {
		t.Fatal("LookupPhones() expected an error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want exactly 1 for a 4xx", got)
	}
}

func TestLookupPhonesFiltersBadMembers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lookupResponse{
			Members: []types.DirectoryMember{
				memberFixture("+14155552671"),
				{
					// missing handle
					PhoneNumber:   "+14155552672",
					UserID:        "user-2",
					WalletAddress: "0x00000000000000000000000000000000000000bb",
				},
				{
					PhoneNumber:   "+14155552673",
					UserID:        "user-3",
					Handle:        "carla",
					WalletAddress: "not-a-wallet",
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	members, err := client.LookupPhones(context.Background(), []string{"+14155552671", "+14155552672", "+14155552673"})
	if err != nil {
		t.Fatalf("LookupPhones() error = %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("LookupPhones() = %d members, want only the well-formed one", len(members))
	}
	if members[0].PhoneNumber != "+14155552671" {
		t.Errorf("kept member = %q, want +14155552671", members[0].PhoneNumber)
	}
}

func TestLookupPhonesMalformedResponse(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.LookupPhones(context.Background(), []string{"+14155552671"}); err == nil {
		t.Fatal("LookupPhones() expected an error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want no retry on a decode failure", got)
	}
}
