package contacts

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/contact-sync/internal/types"
)

// Persisted store keys. Two full-snapshot JSON blobs per profile: the
// deduplicated array (fast cold-start path) and the normalized-key index
// (fallback path for snapshots written before the array key existed),
// plus the last permission decision.
const (
	snapshotArrayKey = "contacts.array"
	snapshotIndexKey = "contacts.index"
	permissionKey    = "contacts.permission"
)

// encodeArray serializes the contact array snapshot
func encodeArray(array []*types.ContactRecord) (string, error) {
	data, err := json.Marshal(array)
	if err != nil {
		return "", fmt.Errorf("failed to encode contact array: %w", err)
	}
	return string(data), nil
}

// decodeArray deserializes a contact array snapshot
func decodeArray(data string) ([]*types.ContactRecord, error) {
	var array []*types.ContactRecord
	if err := json.Unmarshal([]byte(data), &array); err != nil {
		return nil, fmt.Errorf("failed to decode contact array: %w", err)
	}
	return array, nil
}

// encodeIndex serializes the normalized-key index snapshot. encoding/json
// writes map keys in sorted order, so identical indexes serialize to
// identical bytes.
func encodeIndex(index map[string]*types.ContactRecord) (string, error) {
	data, err := json.Marshal(index)
	if err != nil {
		return "", fmt.Errorf("failed to encode contact index: %w", err)
	}
	return string(data), nil
}

// decodeIndex deserializes a contact index snapshot
func decodeIndex(data string) (map[string]*types.ContactRecord, error) {
	var index map[string]*types.ContactRecord
	if err := json.Unmarshal([]byte(data), &index); err != nil {
		return nil, fmt.Errorf("failed to decode contact index: %w", err)
	}
	return index, nil
}

// indexFromArray rebuilds the in-memory matching index from an array
// snapshot. Records later in the array win key collisions, mirroring the
// last-write-wins rule of a reconciliation pass.
func indexFromArray(array []*types.ContactRecord) map[string]*types.ContactRecord {
	index := make(map[string]*types.ContactRecord)
	for _, record := range array {
		for _, key := range record.NormalizedPhones {
			if key == "" {
				continue
			}
			index[key] = record
		}
	}
	return index
}

// arrayFromIndex rebuilds a deduplicated array view from a legacy index
// snapshot: one record per (name, first raw phone) pair, ordered by index
// key for determinism. JSON decoding gives every index entry its own
// record instance, so identity is restored through deduplication.
func arrayFromIndex(index map[string]*types.ContactRecord) []*types.ContactRecord {
	keys := make([]string, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]bool)
	array := make([]*types.ContactRecord, 0, len(index))
	for _, key := range keys {
		record := index[key]
		dedup := record.DedupKey()
		if seen[dedup] {
			continue
		}
		seen[dedup] = true
		array = append(array, record)
	}
	return array
}
