package addressbook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/contact-sync/internal/types"
)

// StaticAccessor serves a fixed contact set with a simulated permission
// state. The device OS bridge runs out of process, so this is both the
// fixture-backed production seam for the sync service and the test seam.
type StaticAccessor struct {
	mu         sync.RWMutex
	contacts   []DeviceContact
	permission types.PermissionState
	readErr    error

	// grantOnRequest controls whether RequestPermission resolves a pending
	// state to granted (the user tapping "allow") or denied
	grantOnRequest bool
}

// NewStaticAccessor creates an accessor with permission pending and an
// empty contact set
func NewStaticAccessor() *StaticAccessor {
	return &StaticAccessor{
		permission:     types.PermissionPending,
		grantOnRequest: true,
	}
}

// LoadFixture creates an accessor from a JSON file holding an array of
// device contacts. Permission starts granted: a fixture implies consent.
func LoadFixture(path string) (*StaticAccessor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("addressbook: failed to read fixture: %w", err)
	}

	var contacts []DeviceContact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("addressbook: failed to parse fixture: %w", err)
	}

	a := NewStaticAccessor()
	a.contacts = contacts
	a.permission = types.PermissionGranted
	return a, nil
}

// GetAll reads every contact
func (a *StaticAccessor) GetAll(ctx context.Context) ([]DeviceContact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.readErr != nil {
		return nil, a.readErr
	}

	out := make([]DeviceContact, len(a.contacts))
	copy(out, a.contacts)
	return out, nil
}

// CheckPermission reports the current permission state
func (a *StaticAccessor) CheckPermission(ctx context.Context) (types.PermissionState, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.permission, nil
}

// RequestPermission resolves a pending permission; granted and denied
// states are sticky, matching OS behavior
func (a *StaticAccessor) RequestPermission(ctx context.Context) (types.PermissionState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.permission == types.PermissionPending {
		if a.grantOnRequest {
			a.permission = types.PermissionGranted
		} else {
			a.permission = types.PermissionDenied
		}
	}
	return a.permission, nil
}

// SetContacts replaces the contact set
func (a *StaticAccessor) SetContacts(contacts []DeviceContact) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contacts = contacts
}

// SetPermission forces a permission state
func (a *StaticAccessor) SetPermission(state types.PermissionState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.permission = state
}

// SetGrantOnRequest controls how a pending prompt resolves
func (a *StaticAccessor) SetGrantOnRequest(grant bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.grantOnRequest = grant
}

// SetReadError injects a read failure for GetAll
func (a *StaticAccessor) SetReadError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.readErr = err
}
