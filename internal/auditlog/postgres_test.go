package auditlog

import (
	"testing"

	"doublecheck/internal/check"
)

// The conditional-update and conflict behavior is Postgres-specific
// (RowsAffected on a guarded UPDATE, ON CONFLICT DO NOTHING) and is covered
// by integration tests against a real database. What we can unit-test here
// is the plumbing around it.

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 50},
		{-5, 50},
		{10, 10},
		{500, 500},
		{5000, 500},
	}
	for _, tc := range cases {
		if got := clampLimit(tc.in); got != tc.want {
			t.Fatalf("clampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	b, err := marshalJSON(map[string]any{"wallet_id": "w-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var e check.Entry
	if err := unmarshalJSON(b, &e.Target); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Target["wallet_id"] != "w-1" {
		t.Fatalf("round trip lost data: %v", e.Target)
	}

	// nil maps marshal to nil, and nil bytes unmarshal to nothing.
	b, err = marshalJSON(nil)
	if err != nil || b != nil {
		t.Fatalf("expected nil for nil input, got %v %v", b, err)
	}
	if err := unmarshalJSON(nil, &e.Payload); err != nil {
		t.Fatalf("nil bytes should be a no-op: %v", err)
	}
}
