package contacts

import (
	"testing"

	"github.com/contact-sync/internal/phone"
	"github.com/contact-sync/internal/types"
)

func testRecord(name string, raws []string, normalized []string) *types.ContactRecord {
	return &types.ContactRecord{
		ID:               name,
		Name:             name,
		PhoneNumbers:     raws,
		NormalizedPhones: normalized,
	}
}

func TestLookupIndexMatchOrder(t *testing.T) {
	n := phone.NewNormalizer("VE")

	ana := testRecord("Ana", []string{"0414-123-4567"}, []string{"+584141234567", "584141234567"})
	idx := buildLookupIndex([]*types.ContactRecord{ana})

	tests := []struct {
		name  string
		query string
	}{
		{"exact raw string", "0414-123-4567"},
		{"digits of the raw string", "04141234567"},
		{"canonical key", "+584141234567"},
		{"no-plus key", "584141234567"},
		{"freshly formatted query normalizes to the same key", "0414 123 4567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := idx.find(tt.query, n)
			if record != ana {
				t.Errorf("find(%q) = %v, want Ana", tt.query, record)
			}
		})
	}
}

func TestLookupIndexMisses(t *testing.T) {
	n := phone.NewNormalizer("US")

	idx := buildLookupIndex([]*types.ContactRecord{
		testRecord("Bob", []string{"(415) 555-2671"}, []string{"+14155552671", "14155552671"}),
	})

	for _, query := range []string{"", "+15550000000", "no digits here"} {
		if record := idx.find(query, n); record != nil {
			t.Errorf("find(%q) = %v, want nil", query, record)
		}
	}
}

func TestLookupIndexUnparseableNumbers(t *testing.T) {
	n := phone.NewNormalizer("US")

	shorty := testRecord("Shorty", []string{"12"}, []string{"12"})
	idx := buildLookupIndex([]*types.ContactRecord{shorty})

	// The degraded digits-only key still resolves, including from a noisy
	// query that strips to the same digits
	for _, query := range []string{"12", "#12#"} {
		if record := idx.find(query, n); record != shorty {
			t.Errorf("find(%q) = %v, want Shorty", query, record)
		}
	}
}

func TestLookupIndexLaterRecordWinsCollisions(t *testing.T) {
	n := phone.NewNormalizer("VE")

	first := testRecord("Ana", []string{"0414-123-4567"}, []string{"+584141234567", "584141234567"})
	second := testRecord("Ana B.", []string{"0414-123-4567"}, []string{"+584141234567", "584141234567"})
	idx := buildLookupIndex([]*types.ContactRecord{first, second})

	if record := idx.find("+584141234567", n); record != second {
		t.Errorf("find() = %v, want the later record to win", record)
	}
}

func TestLookupIndexSize(t *testing.T) {
	idx := buildLookupIndex([]*types.ContactRecord{
		testRecord("Ana", []string{"0414-123-4567"}, []string{"+584141234567", "584141234567"}),
	})

	// raw, digits-of-raw, and two normalized keys
	if got := idx.size(); got != 4 {
		t.Errorf("size() = %d, want 4", got)
	}
}
