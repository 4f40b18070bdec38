package verifier

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sflowg/workflow-compiler/internal/codegen"
	"github.com/sflowg/workflow-compiler/internal/security"
)

// workspace is a throwaway project directory holding one bundle.
type workspace struct {
	Path string
	ID   string
}

// createWorkspace makes a fresh directory under parent, or under the system
// temp dir when parent is empty.
func createWorkspace(parent string) (*workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	id := uuid.New().String()[:8]

	path := filepath.Join(parent, fmt.Sprintf("wfc-verify-%s", id))
	if err := security.Within(parent, path); err != nil {
		return nil, fmt.Errorf("invalid workspace path: %w", err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory at %q: %w", path, err)
	}
	return &workspace{Path: path, ID: id}, nil
}

// populate writes the bundle and the lint configuration.
func (w *workspace) populate(b *codegen.Bundle) error {
	if err := b.Write(w.Path); err != nil {
		return err
	}
	cfg, err := security.Join(w.Path, eslintConfigFile)
	if err != nil {
		return fmt.Errorf("invalid eslint config path: %w", err)
	}
	if err := os.WriteFile(cfg, eslintConfig(), 0644); err != nil {
		return fmt.Errorf("failed to write eslint config at %q: %w", cfg, err)
	}
	return nil
}

func (w *workspace) hasDependencies() bool {
	info, err := os.Stat(filepath.Join(w.Path, "node_modules"))
	return err == nil && info.IsDir()
}

// cleanup removes the workspace directory.
func (w *workspace) cleanup() error {
	if w.Path == "" {
		return nil
	}
	if err := os.RemoveAll(w.Path); err != nil {
		return fmt.Errorf("failed to cleanup workspace at %q: %w", w.Path, err)
	}
	return nil
}
