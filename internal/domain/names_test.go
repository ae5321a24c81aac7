package domain

import "testing"

func TestEmailAddressValid(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{"a@b.com", true},
		{string(UnknownEmailAddress), true},
		{"no-at-sign", false},
		{"two@at@signs.com", false},
		{"@missinglocal.com", false},
		{"missingdomain@", false},
		{"no-dot@domain", false},
		{"has\x00control@chars.com", false},
	}

	for _, c := range cases {
		if got := EmailAddress(c.email).Valid(); got != c.ok {
			t.Fatalf("EmailAddress(%q).Valid() = %v, want %v", c.email, got, c.ok)
		}
	}
}

func TestDisplayNameValid(t *testing.T) {
	if !UnknownDisplayName.Valid() {
		t.Fatalf("UNKNOWN sentinel should be valid")
	}
	if !DisplayName("Alice Example").Valid() {
		t.Fatalf("ordinary display name should be valid")
	}
	if DisplayName("bad\x7fname").Valid() {
		t.Fatalf("control character should invalidate display name")
	}
	if DisplayName("").Valid() {
		t.Fatalf("empty display name should be invalid")
	}
}
