package api

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerMB = 1024 * 1024

// ResourceUsage is the resource section of the health response. Fields that
// cannot be read on the host are left zero.
type ResourceUsage struct {
	Goroutines              int     `json:"goroutines"`
	ProcessResidentMB       uint64  `json:"process_resident_mb"`
	ProcessVirtualMB        uint64  `json:"process_virtual_mb"`
	SystemMemoryUsedPercent float64 `json:"system_memory_used_percent"`
}

func captureResourceUsage() ResourceUsage {
	usage := ResourceUsage{Goroutines: runtime.NumGoroutine()}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits in int32
		if memInfo, err := proc.MemoryInfo(); err == nil {
			usage.ProcessResidentMB = memInfo.RSS / bytesPerMB
			usage.ProcessVirtualMB = memInfo.VMS / bytesPerMB
		}
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryUsedPercent = vmStat.UsedPercent
	}

	return usage
}
