package types

import "testing"

func TestDirectoryIdentityAtomicity(t *testing.T) {
	record := &ContactRecord{
		ID:           "1",
		Name:         "Ana",
		PhoneNumbers: []string{"0414-123-4567"},
	}

	record.SetDirectoryIdentity("user-1", "ana_v", "0x00000000000000000000000000000000000000aa")
	if !record.IsDirectoryMember {
		t.Error("IsDirectoryMember = false after SetDirectoryIdentity")
	}
	if record.DirectoryUserID == "" || record.DirectoryHandle == "" || record.DirectoryWalletAddress == "" {
		t.Errorf("identity fields incomplete: %+v", record)
	}

	record.ClearDirectoryIdentity()
	if record.IsDirectoryMember {
		t.Error("IsDirectoryMember = true after ClearDirectoryIdentity")
	}
	if record.DirectoryUserID != "" || record.DirectoryHandle != "" || record.DirectoryWalletAddress != "" {
		t.Errorf("identity fields survived the clear: %+v", record)
	}
}

func TestDedupKey(t *testing.T) {
	tests := []struct {
		name   string
		record ContactRecord
		want   string
	}{
		{
			name: "name and first phone",
			record: ContactRecord{
				Name:         "Ana",
				PhoneNumbers: []string{"0414-123-4567", "0212-555-1234"},
			},
			want: "Ana|0414-123-4567",
		},
		{
			name:   "no phones",
			record: ContactRecord{Name: "Ana"},
			want:   "Ana|",
		},
		{
			name: "same name different first phone",
			record: ContactRecord{
				Name:         "Ana",
				PhoneNumbers: []string{"0212-555-1234"},
			},
			want: "Ana|0212-555-1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.DedupKey(); got != tt.want {
				t.Errorf("DedupKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Code: "READ_FAILURE", Message: "failed to read device address book"}
	want := "READ_FAILURE: failed to read device address book"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
