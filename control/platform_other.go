//go:build !linux && !windows
// +build !linux,!windows

// control/platform_other.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"runtime"

	"github.com/momentics/hiosock/api"
)

// RegisterPlatformProbes sets the probes every platform can answer.
func RegisterPlatformProbes(dp *DebugProbes, p api.Platform) {
	dp.RegisterProbe("platform.name", func() any { return p.Name() })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	dp.RegisterProbe("platform.goos", func() any { return runtime.GOOS })
}
