//go:build unix

package precision

import (
	"fmt"
	"os"
	"syscall"
)

// mmapReadOnly memory-maps path read-only and checks its length matches
// wantBytes exactly before mapping, per §6's "mismatch -> error before any
// mapping" contract. Grounded on the teacher's internal/serialization mmap
// split between unix and windows implementations, reduced to the read-only
// path precision.FileMapped needs.
func mmapReadOnly(path string, wantBytes int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if int64(wantBytes) != info.Size() {
		return nil, fmt.Errorf("file size %d does not match declared dims (%d bytes)", info.Size(), wantBytes)
	}
	if wantBytes == 0 {
		return []byte{}, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, wantBytes, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return data, nil
}
