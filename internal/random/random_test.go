package random

import "testing"

// TestNewLength tests that New returns a slice of the requested length.
func TestNewLength(t *testing.T) {
	for _, length := range []int{0, 1, 16, 32} {
		result, err := New(length)
		if err != nil {
			t.Fatalf("unable to generate random data: %s", err)
		}
		if len(result) != length {
			t.Errorf("expected length %d, got %d", length, len(result))
		}
	}
}

// TestNewVaries tests that two calls to New do not return identical data
// (overwhelmingly likely for a reasonable length).
func TestNewVaries(t *testing.T) {
	a, err := New(32)
	if err != nil {
		t.Fatalf("unable to generate random data: %s", err)
	}
	b, err := New(32)
	if err != nil {
		t.Fatalf("unable to generate random data: %s", err)
	}
	if string(a) == string(b) {
		t.Error("two calls to New returned identical data")
	}
}
