package codegen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sflowg/workflow-compiler/internal/security"
)

// Bundle is the generated source set for one workflow.
type Bundle struct {
	Workflow        string `json:"workflow"`
	Activities      string `json:"activities"`
	Worker          string `json:"worker"`
	PackageManifest string `json:"packageManifest"`
	BuildConfig     string `json:"buildConfig"`

	Steps []Step `json:"-"`
}

// File is one bundle member at its project-relative path.
type File struct {
	Path    string
	Content string
}

// Files lists the bundle in project layout order.
func (b *Bundle) Files() []File {
	return []File{
		{Path: "src/workflow.ts", Content: b.Workflow},
		{Path: "src/activities.ts", Content: b.Activities},
		{Path: "src/worker.ts", Content: b.Worker},
		{Path: "package.json", Content: b.PackageManifest},
		{Path: "tsconfig.json", Content: b.BuildConfig},
	}
}

// Hash is a content address for the bundle. Equal bundles hash equally.
func (b *Bundle) Hash() string {
	h := sha256.New()
	for _, f := range b.Files() {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write([]byte(f.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Write materializes the bundle under dir.
func (b *Bundle) Write(dir string) error {
	for _, f := range b.Files() {
		path, err := security.Join(dir, f.Path)
		if err != nil {
			return fmt.Errorf("invalid bundle path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", f.Path, err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return fmt.Errorf("failed to write %q: %w", f.Path, err)
		}
	}
	return nil
}
