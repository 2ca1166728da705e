package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/dangazineu/ghcollect/internal/git"
)

func TestClone(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()

	// Create a bare git repository
	bareRepoPath := filepath.Join(tmpDir, "bare.git")
	cmd := exec.Command("git", "init", "--bare", bareRepoPath)
	err := cmd.Run()
	if err != nil {
		t.Fatalf("failed to create bare repo: %v", err)
	}

	// Clone the repository
	clonePath := filepath.Join(tmpDir, "clone")
	err = git.Clone(context.Background(), bareRepoPath, clonePath)
	if err != nil {
		t.Fatalf("failed to clone repo: %v", err)
	}

	// Verify the clone
	if _, err := os.Stat(filepath.Join(clonePath, ".git")); os.IsNotExist(err) {
		t.Errorf(".git directory not found in cloned repo")
	}

	if err := git.Remove(clonePath); err != nil {
		t.Fatalf("failed to remove clone: %v", err)
	}
	if _, err := os.Stat(clonePath); !os.IsNotExist(err) {
		t.Errorf("clone still present after Remove")
	}
}

func TestCloneFailure(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	err := git.Clone(context.Background(), filepath.Join(tmpDir, "missing.git"), filepath.Join(tmpDir, "clone"))
	if err == nil {
		t.Fatal("expected clone of a missing repository to fail")
	}
}
