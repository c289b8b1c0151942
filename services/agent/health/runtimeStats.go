package health

import (
	"runtime"
	"time"
)

// RuntimeStats is a snapshot of the process resources
type RuntimeStats struct {
	HeapAlloc    uint64
	HeapSys      uint64
	NumGoroutine int
	NumCPU       int
	LastGCPause  time.Duration
}

// ReadRuntimeStats reads the current process resources from the Go runtime
func ReadRuntimeStats() RuntimeStats {
	memStats := runtime.MemStats{}
	runtime.ReadMemStats(&memStats)

	stats := RuntimeStats{
		HeapAlloc:    memStats.HeapAlloc,
		HeapSys:      memStats.HeapSys,
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
	}
	if memStats.NumGC > 0 {
		stats.LastGCPause = time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256])
	}

	return stats
}
