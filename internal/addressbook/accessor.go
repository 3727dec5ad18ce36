// Package addressbook defines the device address-book collaborator: the
// component that reads raw contacts and the OS-level permission state.
package addressbook

import (
	"context"
	"strings"

	"github.com/contact-sync/internal/types"
)

// PhoneNumber is one raw phone entry on a device contact
type PhoneNumber struct {
	Number string `json:"number"`
}

// DeviceContact is one raw address-book entry as the device reports it
type DeviceContact struct {
	RecordID     string        `json:"recordId"`
	GivenName    string        `json:"givenName"`
	FamilyName   string        `json:"familyName"`
	DisplayName  string        `json:"displayName"`
	PhoneNumbers []PhoneNumber `json:"phoneNumbers"`
	HasThumbnail bool          `json:"hasThumbnail"`
	ThumbnailRef string        `json:"thumbnailRef,omitempty"`
}

// Name returns the display name, falling back to "Given Family" when the
// device did not provide one
func (c *DeviceContact) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return strings.TrimSpace(c.GivenName + " " + c.FamilyName)
}

// Accessor is the device address-book contract. Failures surface as a
// permission outcome or a read error; there are no partial reads.
type Accessor interface {
	// GetAll reads every contact from the device address book
	GetAll(ctx context.Context) ([]DeviceContact, error)
	// CheckPermission reports the current OS permission state
	CheckPermission(ctx context.Context) (types.PermissionState, error)
	// RequestPermission triggers the OS prompt when pending; idempotent
	RequestPermission(ctx context.Context) (types.PermissionState, error)
}
