package security

import (
	"path/filepath"
	"testing"
)

func TestWithin(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{"boundary itself", root, false},
		{"nested file", filepath.Join(root, "src", "workflow.ts"), false},
		{"dotdot prefixed name", filepath.Join(root, "..hidden"), false},
		{"parent", filepath.Join(root, ".."), true},
		{"sibling via traversal", filepath.Join(root, "..", "other", "file"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Within(root, tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("Within(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	root := t.TempDir()

	got, err := Join(root, "src/worker.ts")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if got != filepath.Join(root, "src", "worker.ts") {
		t.Errorf("unexpected path %q", got)
	}

	for _, rel := range []string{"../escape.ts", "src/../../escape.ts", "/etc/passwd"} {
		if _, err := Join(root, rel); err == nil {
			t.Errorf("Join(%q) expected error", rel)
		}
	}
}
