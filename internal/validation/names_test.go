package validation

import (
	"testing"
)

func TestValidateFilename(t *testing.T) {
	testCases := []struct {
		name        string
		filename    string
		expectValid bool
	}{
		{"simple", "cat.png", true},
		{"with_dots", "model.v1.2.safetensors", true},
		{"hidden_file", ".hidden.txt", true},
		{"spaces", "my file.txt", true},
		{"contains_dots", "file..txt", true},
		{"unicode", "café.png", true},

		{"empty", "", false},
		{"blank", "   ", false},
		{"dot", ".", false},
		{"parent_dir", "..", false},
		{"unix_separator", "dir/file.txt", false},
		{"windows_separator", `dir\file.txt`, false},
		{"traversal_attempt", "../etc/passwd", false},
		{"absolute_path", "/etc/passwd", false},
		{"null_byte", "file\x00.txt", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFilename(tc.filename)
			if tc.expectValid && err != nil {
				t.Errorf("ValidateFilename(%q) error = %v, want valid", tc.filename, err)
			}
			if !tc.expectValid && err == nil {
				t.Errorf("ValidateFilename(%q) passed, want error", tc.filename)
			}
		})
	}
}
