package contacts

import (
	"github.com/contact-sync/internal/phone"
	"github.com/contact-sync/internal/types"
)

// lookupIndex is the synchronous read-side cache: a lazily materialized
// map from every known phone representation to its contact record. It is
// built once from the current in-memory array and thrown away whenever the
// array is replaced. Pure computation, no I/O, no mutation of the records.
type lookupIndex struct {
	byPhone map[string]*types.ContactRecord
}

// buildLookupIndex materializes the cache from the current array. Each
// record is reachable under its exact raw strings, the digits-only form of
// each raw string, and every normalized key. Later records win collisions,
// consistent with the reconciliation index.
func buildLookupIndex(array []*types.ContactRecord) *lookupIndex {
	byPhone := make(map[string]*types.ContactRecord)

	for _, record := range array {
		for _, raw := range record.PhoneNumbers {
			if raw != "" {
				byPhone[raw] = record
			}
			if digits := phone.DigitsOnly(raw); digits != "" {
				byPhone[digits] = record
			}
		}
		for _, key := range record.NormalizedPhones {
			if key != "" {
				byPhone[key] = record
			}
		}
	}

	return &lookupIndex{byPhone: byPhone}
}

// find resolves a query phone to a contact record, or nil when nothing
// matches. Match order: exact raw string, digits-only form, then the
// query's own normalized keys.
func (idx *lookupIndex) find(query string, normalizer *phone.Normalizer) *types.ContactRecord {
	if query == "" {
		return nil
	}

	if record, ok := idx.byPhone[query]; ok {
		return record
	}

	if digits := phone.DigitsOnly(query); digits != "" {
		if record, ok := idx.byPhone[digits]; ok {
			return record
		}
	}

	for _, key := range normalizer.Keys(query) {
		if record, ok := idx.byPhone[key]; ok {
			return record
		}
	}

	return nil
}

// size returns the number of distinct phone representations indexed
func (idx *lookupIndex) size() int {
	return len(idx.byPhone)
}
