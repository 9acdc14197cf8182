//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux probes. somaxconn silently caps every listen backlog.

package control

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/momentics/hiosock/api"
)

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes, p api.Platform) {
	dp.RegisterProbe("platform.name", func() any { return p.Name() })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	dp.RegisterProbe("platform.somaxconn", func() any {
		return readSysctlInt("/proc/sys/net/core/somaxconn")
	})
	dp.RegisterProbe("platform.syn_retries", func() any {
		return readSysctlInt("/proc/sys/net/ipv4/tcp_syn_retries")
	})
}

// readSysctlInt returns -1 when the value cannot be read.
func readSysctlInt(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return -1
	}
	return v
}
