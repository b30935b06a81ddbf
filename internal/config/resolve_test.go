package config

import "testing"

func TestResolveValue(t *testing.T) {
	t.Setenv("TALE_TEST_SECRET", "s3cret")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  literal  ", "literal"},
		{"${TALE_TEST_SECRET}", "s3cret"},
		{"$TALE_TEST_SECRET", "s3cret"},
		{"$(printf 'from-cmd')", "from-cmd"},
	}
	for _, tc := range tests {
		got, err := ResolveValue(tc.in)
		if err != nil {
			t.Fatalf("ResolveValue(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveValue(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveValueCommandFailure(t *testing.T) {
	if _, err := ResolveValue("$(exit 3)"); err == nil {
		t.Fatal("expected error for failing command")
	}
}

func TestResolveValueSRVMissingHost(t *testing.T) {
	if _, err := ResolveValue("srv:///path"); err == nil {
		t.Fatal("expected error for srv:// without host")
	}
}
