package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseRefundID checks that parsing never panics and that accepted ids
// round-trip through String.
func FuzzParseRefundID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE refunds;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseRefundID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Error("accepted nil id")
		}
		roundTrip, err := ParseRefundID(id.String())
		if err != nil {
			t.Errorf("valid id failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed id value")
		}
	})
}

func FuzzParseTransactionID(f *testing.F) {
	f.Add("TXN-1")
	f.Add("")
	f.Add("a b")
	f.Add("​")

	f.Fuzz(func(t *testing.T, input string) {
		ref, err := ParseTransactionID(input)
		if err != nil {
			return
		}
		if !utf8.ValidString(string(ref)) || len(ref) == 0 || len(ref) > maxReferenceLength {
			t.Errorf("accepted invalid reference %q", ref)
		}
	})
}
