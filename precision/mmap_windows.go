//go:build windows

package precision

import (
	"fmt"
	"os"
)

// mmapReadOnly falls back to a plain read on windows, matching the teacher's
// internal/serialization/mmap_windows.go split (no syscall.Mmap there
// either — Windows file mapping goes through a different API the teacher
// itself avoided for the read-only case).
func mmapReadOnly(path string, wantBytes int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != wantBytes {
		return nil, fmt.Errorf("file size %d does not match declared dims (%d bytes)", len(data), wantBytes)
	}
	return data, nil
}
