package sniff

import (
	"os"
	"runtime"
	"time"
)

const mib = 1024 * 1024

var pid = os.Getpid()

// Collect takes a snapshot of the process memory and scheduler statistics. A Lambda execution
// environment is reused across invocations, so the snapshot logged at the end of each invocation
// shows memory growth against the function's memory size.
func Collect() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Pid:       pid,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MemStats: &MemStats{
			AllocMiB:      m.Alloc / mib,
			TotalAllocMiB: m.TotalAlloc / mib,
			SysMiB:        m.Sys / mib,
			NumGC:         m.NumGC,
		},
		CPUStats: &CPUStats{
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			NumCgoCalls:   runtime.NumCgoCall(),
		},
	}
}
