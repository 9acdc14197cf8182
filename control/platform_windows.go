//go:build windows
// +build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows introspection points.

package control

import (
	"runtime"

	"github.com/momentics/hiosock/api"
)

// RegisterPlatformProbes sets Windows-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes, p api.Platform) {
	dp.RegisterProbe("platform.name", func() any { return p.Name() })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	dp.RegisterProbe("platform.winsock", func() any { return "2.2" })
}
