package contacts

import (
	"testing"
	"time"

	"github.com/contact-sync/internal/types"
)

func snapshotRecord(name, raw string, keys ...string) *types.ContactRecord {
	return &types.ContactRecord{
		ID:               name,
		Name:             name,
		PhoneNumbers:     []string{raw},
		NormalizedPhones: keys,
		LastSyncedAt:     time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestArrayRoundTripRebuildsIndex(t *testing.T) {
	ana := snapshotRecord("Ana", "0414-123-4567", "+584141234567", "584141234567")
	bob := snapshotRecord("Bob", "(415) 555-2671", "+14155552671", "14155552671")
	bob.SetDirectoryIdentity("user-bob", "bob", "0x00000000000000000000000000000000000000bb")

	encoded, err := encodeArray([]*types.ContactRecord{ana, bob})
	if err != nil {
		t.Fatalf("encodeArray() error = %v", err)
	}
	decoded, err := decodeArray(encoded)
	if err != nil {
		t.Fatalf("decodeArray() error = %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d records, want 2", len(decoded))
	}
	if !decoded[1].IsDirectoryMember || decoded[1].DirectoryHandle != "bob" {
		t.Errorf("directory identity lost through the round trip: %+v", decoded[1])
	}

	index := indexFromArray(decoded)
	if len(index) != 4 {
		t.Errorf("indexFromArray() produced %d keys, want 4", len(index))
	}
	if index["+14155552671"] != decoded[1] {
		t.Error("index entry does not point at the decoded record instance")
	}
}

func TestIndexFromArrayLaterRecordWins(t *testing.T) {
	first := snapshotRecord("Ana", "0414-123-4567", "+584141234567")
	second := snapshotRecord("Ana B.", "0414-123-4567", "+584141234567")

	index := indexFromArray([]*types.ContactRecord{first, second})
	if index["+584141234567"] != second {
		t.Errorf("index winner = %v, want the later record", index["+584141234567"])
	}
}

func TestArrayFromIndexDeduplicates(t *testing.T) {
	// A legacy snapshot stores one index entry per key; both keys of one
	// person decode to distinct instances sharing a dedup identity
	entryA := snapshotRecord("Ana", "0414-123-4567", "+584141234567", "584141234567")
	entryB := snapshotRecord("Ana", "0414-123-4567", "+584141234567", "584141234567")
	other := snapshotRecord("Bob", "(415) 555-2671", "+14155552671")

	index := map[string]*types.ContactRecord{
		"+584141234567": entryA,
		"584141234567":  entryB,
		"+14155552671":  other,
	}

	array := arrayFromIndex(index)
	if len(array) != 2 {
		t.Fatalf("arrayFromIndex() = %d records, want 2", len(array))
	}

	names := map[string]int{}
	for _, record := range array {
		names[record.Name]++
	}
	if names["Ana"] != 1 || names["Bob"] != 1 {
		t.Errorf("unexpected dedup result: %v", names)
	}
}

func TestEncodeIndexDeterministic(t *testing.T) {
	ana := snapshotRecord("Ana", "0414-123-4567", "+584141234567", "584141234567")
	index := map[string]*types.ContactRecord{
		"+584141234567": ana,
		"584141234567":  ana,
	}

	first, err := encodeIndex(index)
	if err != nil {
		t.Fatalf("encodeIndex() error = %v", err)
	}
	second, err := encodeIndex(index)
	if err != nil {
		t.Fatalf("encodeIndex() error = %v", err)
	}
	if first != second {
		t.Errorf("encodeIndex() not deterministic:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestDecodeRejectsMalformedSnapshots(t *testing.T) {
	if _, err := decodeArray("{not json"); err == nil {
		t.Error("decodeArray() accepted malformed input")
	}
	if _, err := decodeIndex("[1,2,3]"); err == nil {
		t.Error("decodeIndex() accepted an array where a map is required")
	}
}
