package system

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a point-in-time snapshot of the extractor process, recorded in
// the run report.
type Stats struct {
	RSSBytes   uint64  `yaml:"rss_bytes"`
	VMSBytes   uint64  `yaml:"vms_bytes,omitempty"`
	CPUPercent float64 `yaml:"cpu_percent"`
	Threads    int32   `yaml:"threads"`
	Goroutines int     `yaml:"goroutines"`
}

// Snapshot collects stats for the current process. Probes that fail leave
// their fields at zero; a snapshot is never fatal.
func Snapshot() Stats {
	s := Stats{Goroutines: runtime.NumGoroutine()}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		s.RSSBytes = mem.RSS
		s.VMSBytes = mem.VMS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}
	if threads, err := proc.NumThreads(); err == nil {
		s.Threads = threads
	}
	return s
}
