package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Clone makes a shallow clone of url into path.
func Clone(ctx context.Context, url, path string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, path)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to clone repo %s: %s", url, string(output))
	}
	return nil
}

// Remove deletes a clone created by Clone.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove clone %s: %w", path, err)
	}
	return nil
}
