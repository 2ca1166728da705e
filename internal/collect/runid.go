package collect

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID returns an identifier for one collection run, used to keep
// the clones of concurrent runs apart.
// Format: collect-YYYYMMDD-HHMMSS-<hash>
// Example: collect-20240726-143022-a7b3c1d2.
func GenerateRunID() string {
	now := time.Now().UTC()
	hash := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("collect-%s-%s", now.Format("20060102-150405"), hash)
}

// ParseRunID extracts the timestamp and hash of a run ID.
func ParseRunID(runID string) (time.Time, string, error) {
	const prefix = "collect-"
	if !strings.HasPrefix(runID, prefix) {
		return time.Time{}, "", fmt.Errorf("invalid run ID format: %s", runID)
	}
	rest := runID[len(prefix):]
	if len(rest) != len("20060102-150405")+1+8 || rest[15] != '-' {
		return time.Time{}, "", fmt.Errorf("invalid run ID format: %s", runID)
	}
	timestamp, err := time.Parse("20060102-150405", rest[:15])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid timestamp in run ID %s: %v", runID, err)
	}
	return timestamp, rest[16:], nil
}
