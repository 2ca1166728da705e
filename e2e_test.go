//go:build e2e
// +build e2e

package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dangazineu/ghcollect/test/e2e"
)

func findProjectRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func buildBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "ghcollect")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	projectRoot := findProjectRoot(wd)
	if projectRoot == "" {
		t.Fatal("failed to find project root")
	}
	buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/ghcollect")
	buildCmd.Dir = projectRoot
	var buildOut bytes.Buffer
	buildCmd.Stdout = &buildOut
	buildCmd.Stderr = &buildOut
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("failed to build ghcollect binary: %v\nOutput:\n%s", err, buildOut.String())
	}
	return binPath
}

func TestE2E(t *testing.T) {
	binPath := buildBinary(t)
	for name, tc := range e2e.TestCases {
		t.Run(name, func(t *testing.T) {
			if tc.RequiresAct {
				if testing.Short() {
					t.Skip("skipping act scenario in short mode")
				}
				if _, err := exec.LookPath("act"); err != nil {
					t.Skip("act not installed")
				}
			}
			runTest(t, binPath, &tc)
		})
	}
}

func runTest(t *testing.T, binPath string, tc *e2e.TestCase) {
	repo := t.TempDir()
	for name, content := range tc.Files {
		path := filepath.Join(repo, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	args := make([]string, len(tc.Args))
	for i, a := range tc.Args {
		args[i] = strings.ReplaceAll(a, e2e.RepoPlaceholder, repo)
	}

	var out bytes.Buffer
	cmd := exec.Command(binPath, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if testing.Verbose() {
		t.Logf("Output:\n%s", out.String())
	}
	if tc.ExpectError {
		if err == nil {
			t.Fatalf("expected ghcollect %v to fail", args)
		}
		return
	}
	if err != nil {
		t.Fatalf("failed to run ghcollect %v: %v\nOutput:\n%s", args, err, out.String())
	}

	for _, expected := range tc.ExpectedOutput {
		expected = strings.ReplaceAll(expected, e2e.RepoPlaceholder, repo)
		if !strings.Contains(out.String(), expected) {
			t.Errorf("expected output to contain %q, got %q", expected, out.String())
		}
	}
}
