package addressbook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/contact-sync/internal/types"
)

func TestPermissionLifecycle(t *testing.T) {
	a := NewStaticAccessor()
	ctx := context.Background()

	state, err := a.CheckPermission(ctx)
	if err != nil {
		t.Fatalf("CheckPermission() error = %v", err)
	}
	if state != types.PermissionPending {
		t.Errorf("initial state = %s, want pending", state)
	}

	state, err = a.RequestPermission(ctx)
	if err != nil {
		t.Fatalf("RequestPermission() error = %v", err)
	}
	if state != types.PermissionGranted {
		t.Errorf("state after prompt = %s, want granted", state)
	}

	// Granted is sticky: a second prompt does not re-ask
	a.SetGrantOnRequest(false)
	state, _ = a.RequestPermission(ctx)
	if state != types.PermissionGranted {
		t.Errorf("state after second prompt = %s, granted must be sticky", state)
	}
}

func TestDeniedIsSticky(t *testing.T) {
	a := NewStaticAccessor()
	a.SetGrantOnRequest(false)
	ctx := context.Background()

	state, _ := a.RequestPermission(ctx)
	if state != types.PermissionDenied {
		t.Fatalf("state = %s, want denied", state)
	}

	a.SetGrantOnRequest(true)
	state, _ = a.RequestPermission(ctx)
	if state != types.PermissionDenied {
		t.Errorf("state = %s, denied must be sticky", state)
	}
}

func TestGetAllCopiesAndFails(t *testing.T) {
	a := NewStaticAccessor()
	ctx := context.Background()

	a.SetContacts([]DeviceContact{
		{RecordID: "1", DisplayName: "Ana", PhoneNumbers: []PhoneNumber{{Number: "0414-123-4567"}}},
	})

	got, err := a.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GetAll() = %d contacts, want 1", len(got))
	}

	// Mutating the returned slice must not affect the accessor
	got[0].DisplayName = "mutated"
	again, _ := a.GetAll(ctx)
	if again[0].DisplayName != "Ana" {
		t.Error("GetAll() returned a shared slice")
	}

	wantErr := errors.New("address book unavailable")
	a.SetReadError(wantErr)
	if _, err := a.GetAll(ctx); !errors.Is(err, wantErr) {
		t.Errorf("GetAll() error = %v, want injected error", err)
	}
}

func TestContactName(t *testing.T) {
	tests := []struct {
		name    string
		contact DeviceContact
		want    string
	}{
		{
			name:    "display name wins",
			contact: DeviceContact{DisplayName: "Ana V", GivenName: "Ana", FamilyName: "Vargas"},
			want:    "Ana V",
		},
		{
			name:    "falls back to given and family",
			contact: DeviceContact{GivenName: "Ana", FamilyName: "Vargas"},
			want:    "Ana Vargas",
		},
		{
			name:    "given name only",
			contact: DeviceContact{GivenName: "Ana"},
			want:    "Ana",
		},
		{
			name:    "family name only",
			contact: DeviceContact{FamilyName: "Vargas"},
			want:    "Vargas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.contact.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.json")
	fixture := `[
		{"recordId":"1","displayName":"Ana","phoneNumbers":[{"number":"0414-123-4567"}]},
		{"recordId":"2","givenName":"Bob","phoneNumbers":[{"number":"(415) 555-2671"}]}
	]`
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	a, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}

	ctx := context.Background()

	// A fixture implies consent
	state, _ := a.CheckPermission(ctx)
	if state != types.PermissionGranted {
		t.Errorf("fixture permission = %s, want granted", state)
	}

	contacts, err := a.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("GetAll() = %d contacts, want 2", len(contacts))
	}
	if contacts[1].Name() != "Bob" {
		t.Errorf("second contact name = %q, want Bob", contacts[1].Name())
	}
}

func TestLoadFixtureErrors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFixture() accepted a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Error("LoadFixture() accepted malformed JSON")
	}
}
