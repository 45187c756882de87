package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// debugLog writes to a file; the TUI owns the terminal, so diagnostics
// from the live channel and other background paths go here.
func debugLog(format string, args ...any) {
	path := filepath.Join(os.TempDir(), "parley-debug.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}
