package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCleanupAge is how old a run directory must be before it counts as
// orphaned.
const DefaultCleanupAge = 24 * time.Hour

// CleanupManager removes clone directories left behind by collection runs
// that never reached their own cleanup, e.g. because the process was killed.
type CleanupManager struct {
	workDir string
	maxAge  time.Duration
	logger  zerolog.Logger
}

// NewCleanupManager creates a cleanup manager for the run directories under
// workDir. A zero maxAge means DefaultCleanupAge.
func NewCleanupManager(workDir string, maxAge time.Duration, logger zerolog.Logger) *CleanupManager {
	if maxAge == 0 {
		maxAge = DefaultCleanupAge
	}
	return &CleanupManager{
		workDir: workDir,
		maxAge:  maxAge,
		logger:  logger,
	}
}

// CleanupOrphanedRuns removes run directories older than maxAge, except
// currentRunID and runs with a git operation in progress. Directories not
// named like a run ID are left alone. It returns how many were removed.
func (cm *CleanupManager) CleanupOrphanedRuns(currentRunID string) (int, error) {
	entries, err := os.ReadDir(cm.workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list %s: %w", cm.workDir, err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == currentRunID {
			continue
		}
		if _, _, err := ParseRunID(name); err != nil {
			continue
		}
		path := filepath.Join(cm.workDir, name)
		info, err := entry.Info()
		if err != nil {
			return removed, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if age := time.Since(info.ModTime()); age < cm.maxAge {
			cm.logger.Debug().Str("path", path).Dur("age", age).Msg("run directory too recent")
			continue
		}
		if cm.hasActiveProcesses(path) {
			cm.logger.Debug().Str("path", path).Msg("run directory has a git operation in progress")
			continue
		}

		cm.logger.Info().Str("path", path).Msg("removing orphaned run directory")
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("failed to remove orphaned run directory %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// hasActiveProcesses looks for git lock files in the clones of a run.
func (cm *CleanupManager) hasActiveProcesses(runPath string) bool {
	clones, err := os.ReadDir(runPath)
	if err != nil {
		return false
	}
	for _, clone := range clones {
		for _, lock := range []string{".git/index.lock", ".git/shallow.lock"} {
			if _, err := os.Stat(filepath.Join(runPath, clone.Name(), lock)); err == nil {
				return true
			}
		}
	}
	return false
}
