// -----------------------------------------------------------------------
// Crash Protection - Fatal error handling and crash file generation
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"
)

// crashDir is where crash reports land. Set once during startup.
var crashDir = "./logs"

// InstallCrashHandler points crash reports at logDir and makes sure the
// directory exists. Call it at the very start of main().
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		crashDir = logDir
	}
	if err := os.MkdirAll(crashDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: cannot create %s: %v\n", crashDir, err)
	}
}

// RecoverWithCrashFile is the deferred recovery for main(). A panic that
// reaches it is written to a crash report and the process exits non-zero.
func RecoverWithCrashFile() {
	r := recover()
	if r == nil {
		return
	}

	path := writeCrashFile(r, debug.Stack())
	if path != "" {
		fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - report saved to %s !!!\n", path)
	}
	fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
	os.Exit(1)
}

func writeCrashFile(panicVal interface{}, stack []byte) string {
	name := fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05"))
	path := filepath.Join(crashDir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: cannot create crash file: %v\n", err)
		writeCrashReport(os.Stderr, panicVal, stack)
		return ""
	}
	defer file.Close()

	writeCrashReport(file, panicVal, stack)
	file.Sync()
	return path
}

func writeCrashReport(w io.Writer, panicVal interface{}, stack []byte) {
	fmt.Fprintf(w, "=== MERCATUS CRASH REPORT ===\n")
	fmt.Fprintf(w, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Version: %s\n\n", VersionString())

	fmt.Fprintf(w, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(w, "=== STACK ===\n%s\n", stack)

	fmt.Fprintf(w, "=== ALL GOROUTINES ===\n%s\n", allGoroutineStacks())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(w, "=== RUNTIME ===\n")
	fmt.Fprintf(w, "Goroutines: %d  CPUs: %d  %s/%s\n",
		runtime.NumGoroutine(), runtime.NumCPU(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "Alloc: %d MB  Sys: %d MB  NumGC: %d\n",
		mem.Alloc/1024/1024, mem.Sys/1024/1024, mem.NumGC)
}

// allGoroutineStacks dumps every goroutine, growing the buffer until the
// dump fits.
func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		if len(buf) >= 16*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
