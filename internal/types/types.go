// Package types provides common type definitions for the contact sync system.
package types

import (
	"fmt"
	"time"
)

// PermissionState represents the device address-book permission state
type PermissionState string

const (
	// PermissionGranted means the user has allowed address-book access
	PermissionGranted PermissionState = "granted"
	// PermissionDenied means the user has refused address-book access
	PermissionDenied PermissionState = "denied"
	// PermissionPending means the user has not been asked yet
	PermissionPending PermissionState = "pending"
)

// SyncState represents the engine lifecycle state
type SyncState string

const (
	// StateUnloaded means no snapshot has been loaded into memory yet
	StateUnloaded SyncState = "unloaded"
	// StateLoading means a snapshot load or reconciliation pass is in flight
	StateLoading SyncState = "loading"
	// StateLoaded means an in-memory snapshot is available for reads
	StateLoaded SyncState = "loaded"
)

// ContactRecord is one device contact, the unit of storage.
// Name always comes from the device; remote directory data never overwrites it.
type ContactRecord struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	PhoneNumbers     []string `json:"phoneNumbers"`
	NormalizedPhones []string `json:"normalizedPhones"`
	AvatarRef        string   `json:"avatarRef,omitempty"`

	LastSyncedAt time.Time `json:"lastSyncedAt"`

	// Directory identity. The three identity fields are set and cleared
	// together with IsDirectoryMember, never partially.
	IsDirectoryMember      bool   `json:"isDirectoryMember"`
	DirectoryUserID        string `json:"directoryUserId,omitempty"`
	DirectoryHandle        string `json:"directoryHandle,omitempty"`
	DirectoryWalletAddress string `json:"directoryWalletAddress,omitempty"`
}

// SetDirectoryIdentity marks the record as a directory member and populates
// all three identity fields in one step.
func (c *ContactRecord) SetDirectoryIdentity(userID, handle, walletAddress string) {
	c.IsDirectoryMember = true
	c.DirectoryUserID = userID
	c.DirectoryHandle = handle
	c.DirectoryWalletAddress = walletAddress
}

// ClearDirectoryIdentity removes directory membership and all identity fields.
func (c *ContactRecord) ClearDirectoryIdentity() {
	c.IsDirectoryMember = false
	c.DirectoryUserID = ""
	c.DirectoryHandle = ""
	c.DirectoryWalletAddress = ""
}

// DedupKey returns the de-duplication key used for the contact array view:
// display name plus the first raw phone string. One array entry per
// address-book person, even when two entries share a normalized number.
func (c *ContactRecord) DedupKey() string {
	first := ""
	if len(c.PhoneNumbers) > 0 {
		first = c.PhoneNumbers[0]
	}
	return c.Name + "|" + first
}

// DirectoryMember is one phone number the remote directory recognized,
// with the public identity of the registered user it belongs to.
type DirectoryMember struct {
	PhoneNumber   string `json:"phoneNumber"`
	UserID        string `json:"userId"`
	Handle        string `json:"handle"`
	WalletAddress string `json:"walletAddress"`
}

// ReconcileResult reports the outcome of one successful reconciliation pass
type ReconcileResult struct {
	ReconciledCount int `json:"reconciledCount"`
	MemberCount     int `json:"memberCount"`
}

// ServiceError represents a service-level error with a stable code
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
