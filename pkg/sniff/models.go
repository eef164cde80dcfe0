package sniff

import "github.com/rs/zerolog"

type MemStats struct {
	AllocMiB      uint64 `json:"alloc_mib"`
	TotalAllocMiB uint64 `json:"total_alloc_mib"`
	SysMiB        uint64 `json:"sys_mib"`
	NumGC         uint32 `json:"num_gc"`
}

type CPUStats struct {
	NumGoroutines int   `json:"num_goroutines"`
	NumCPU        int   `json:"num_cpu"`
	NumCgoCalls   int64 `json:"num_cgo_calls"`
}

type Stats struct {
	Pid       int       `json:"pid"`
	Timestamp string    `json:"timestamp"`
	MemStats  *MemStats `json:"mem_stats"`
	CPUStats  *CPUStats `json:"cpu_stats"`
}

// MarshalZerologObject lets a snapshot be attached to a log event with Object.
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Str("timestamp", s.Timestamp)
	if s.MemStats != nil {
		e.Uint64("alloc_mib", s.MemStats.AllocMiB).
			Uint64("total_alloc_mib", s.MemStats.TotalAllocMiB).
			Uint64("sys_mib", s.MemStats.SysMiB).
			Uint32("num_gc", s.MemStats.NumGC)
	}
	if s.CPUStats != nil {
		e.Int("num_goroutines", s.CPUStats.NumGoroutines).
			Int("num_cpu", s.CPUStats.NumCPU)
	}
}
