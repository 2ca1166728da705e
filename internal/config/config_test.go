package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangazineu/ghcollect/internal/sandbox"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, sandbox.DefaultBinary, cfg.Act.Path)
	assert.Equal(t, sandbox.DefaultPlatforms(), cfg.Act.Platforms)
	assert.Equal(t, []string{sandbox.DefaultResultsDir}, cfg.Results.Dirs)
	assert.Equal(t, "./out/", cfg.Out)
	assert.Empty(t, cfg.GitHub.Token)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	content := `act:
  path: /opt/act/bin/act
  platforms:
    ubuntu-22.04: node:20-bookworm
  env:
    - CI=true
results:
  dirs:
    - build/test-results
    - target/surefire-reports
out: results
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0644))
	t.Setenv("GHCOLLECT_OUT", "env-out")
	t.Setenv("GHCOLLECT_GITHUB_TOKEN", "ghp_fromenv")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/act/bin/act", cfg.Act.Path)
	assert.Equal(t, map[string]string{"ubuntu-22.04": "node:20-bookworm"}, cfg.Act.Platforms)
	assert.Equal(t, []string{"CI=true"}, cfg.Act.Env)
	assert.Equal(t, []string{"build/test-results", "target/surefire-reports"}, cfg.Results.Dirs)
	assert.Equal(t, "env-out", cfg.Out)
	assert.Equal(t, "ghp_fromenv", cfg.GitHub.Token)
}

func TestLoadGitHubTokenFallback(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "ghp_fallback", cfg.GitHub.Token)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "act: [\n"},
		{name: "absolute results dir", content: "results:\n  dirs: [/tmp/reports]\n"},
		{name: "escaping results dir", content: "results:\n  dirs: [../reports]\n"},
		{name: "empty act path", content: "act:\n  path: \"\"\n"},
		{name: "malformed act env", content: "act:\n  env: [NOVALUE]\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))
			_, err := Load(New(), path)
			assert.Error(t, err)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
