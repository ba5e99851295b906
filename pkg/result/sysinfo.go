package result

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// SystemInfo captures the runner hardware a result was produced on.
type SystemInfo struct {
	Hostname      string  `json:"hostname,omitempty"`
	OS            string  `json:"os,omitempty"`
	Platform      string  `json:"platform,omitempty"`
	KernelVersion string  `json:"kernel_version,omitempty"`
	Arch          string  `json:"arch"`
	CPUModel      string  `json:"cpu_model,omitempty"`
	CPUCores      int     `json:"cpu_cores"`
	MemoryTotalGB float64 `json:"memory_total_gb,omitempty"`
}

// CollectSystemInfo gathers best-effort system information about the
// current runner. Individual probe failures are logged and leave their
// fields empty; they never fail the run.
func CollectSystemInfo(log logrus.FieldLogger) *SystemInfo {
	info := &SystemInfo{
		Arch:     runtime.GOARCH,
		CPUCores: runtime.NumCPU(),
	}

	if hi, err := host.Info(); err == nil {
		info.Hostname = hi.Hostname
		info.OS = hi.OS
		info.Platform = hi.Platform
		info.KernelVersion = hi.KernelVersion
	} else {
		log.WithError(err).Debug("Failed to read host info")
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	} else if err != nil {
		log.WithError(err).Debug("Failed to read CPU info")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotalGB = float64(vm.Total) / (1 << 30)
	} else {
		log.WithError(err).Debug("Failed to read memory info")
	}

	return info
}
