package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the free space required before any build (100MB).
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks free space in the directory that will hold the index.
// A rebuild writes a full temporary copy next to the live index, so the
// requirement grows with the existing index.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	return c.checkDiskSpace(path, 0)
}

func (c *Checker) checkDiskSpace(path string, indexBytes int64) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	required := uint64(MinDiskSpaceBytes)
	if need := uint64(indexBytes) * 2; need > required {
		required = need
	}

	result.Message = fmt.Sprintf("%s free (need %s)", formatBytes(available), formatBytes(required))
	if available < required {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
