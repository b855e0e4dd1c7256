package identifier

import "testing"

// TestNewValid tests that New generates identifiers that IsValid accepts.
func TestNewValid(t *testing.T) {
	id, err := New(PrefixBuildInvocation)
	if err != nil {
		t.Fatalf("unable to generate identifier: %s", err)
	}
	if !IsValid(id) {
		t.Errorf("generated identifier %q did not validate", id)
	}
}

// TestNewRejectsBadPrefix tests that New rejects prefixes of the wrong length
// or containing disallowed characters.
func TestNewRejectsBadPrefix(t *testing.T) {
	tests := []string{"", "ab", "abcde", "ABCD", "a1cd"}
	for _, prefix := range tests {
		if _, err := New(prefix); err == nil {
			t.Errorf("expected New(%q) to fail", prefix)
		}
	}
}

// TestNewUnique tests that two calls to New produce distinct identifiers.
func TestNewUnique(t *testing.T) {
	a, err := New(PrefixBuildInvocation)
	if err != nil {
		t.Fatalf("unable to generate identifier: %s", err)
	}
	b, err := New(PrefixBuildInvocation)
	if err != nil {
		t.Fatalf("unable to generate identifier: %s", err)
	}
	if a == b {
		t.Error("two generated identifiers were identical")
	}
}

// TestIsValidRejectsGarbage tests that IsValid rejects clearly malformed
// strings.
func TestIsValidRejectsGarbage(t *testing.T) {
	tests := []string{"", "not-an-identifier", "bldi_tooshort"}
	for _, value := range tests {
		if IsValid(value) {
			t.Errorf("expected IsValid(%q) to return false", value)
		}
	}
}
