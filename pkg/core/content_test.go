package core

import "testing"

// TestContentIsContentUpToDate tests Content.IsContentUpToDate.
func TestContentIsContentUpToDate(t *testing.T) {
	// Define test cases.
	tests := []struct {
		name     string
		a, b     Content
		expected bool
	}{
		{"missing vs missing", Missing, Missing, true},
		{"directory vs directory", Directory, Directory, true},
		{"missing vs directory", Missing, Directory, false},
		{"same hash", NewRegularFile([]byte{1, 2, 3}), NewRegularFile([]byte{1, 2, 3}), true},
		{"different hash", NewRegularFile([]byte{1, 2, 3}), NewRegularFile([]byte{1, 2, 4}), false},
		{"file vs directory", NewRegularFile([]byte{1, 2, 3}), Directory, false},
		{"file vs missing", NewRegularFile([]byte{1, 2, 3}), Missing, false},
	}

	// Process test cases.
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := test.a.IsContentUpToDate(test.b); result != test.expected {
				t.Errorf("IsContentUpToDate = %t, expected %t", result, test.expected)
			}
		})
	}
}

// TestContentIsContentAndMetadataUpToDate tests that the metadata-sensitive
// comparison accepts identical regular files and identical missing entries
// and rejects differing kinds. Content carries no metadata field, so there is
// no metadata-only difference to test.
func TestContentIsContentAndMetadataUpToDate(t *testing.T) {
	a := NewRegularFile([]byte{1, 2, 3})
	b := NewRegularFile([]byte{1, 2, 3})
	if !a.IsContentAndMetadataUpToDate(b) {
		t.Error("identical regular files unexpectedly not up to date")
	}
	if !Missing.IsContentAndMetadataUpToDate(Missing) {
		t.Error("missing vs missing unexpectedly not up to date")
	}
	if Directory.IsContentAndMetadataUpToDate(Missing) {
		t.Error("directory vs missing unexpectedly up to date")
	}
}

// TestNewRegularFile tests that NewRegularFile tags its result with
// ContentRegularFile and stores the hash verbatim.
func TestNewRegularFile(t *testing.T) {
	hash := []byte{0xde, 0xad, 0xbe, 0xef}
	c := NewRegularFile(hash)
	if c.Kind != ContentRegularFile {
		t.Errorf("unexpected kind: %v", c.Kind)
	}
	if string(c.Hash) != string(hash) {
		t.Errorf("hash not preserved: %v", c.Hash)
	}
}
