package session

import (
	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
)

// WriteDebugArtifacts writes the compile pipeline's per-kernel debug files
// (§6 "Debug artifacts (opt-in)") into dir, a no-op when the session's
// debug-files flag is off.
func (s *Session) WriteDebugArtifacts(dir, name string, hl hlir.Code, unoptimized, optimized llir.LLCode) error {
	if !s.DebugFiles() {
		return nil
	}
	return backend.WriteDebugFiles(dir, name, hl, unoptimized, optimized)
}
