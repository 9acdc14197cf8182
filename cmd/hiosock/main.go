// File: cmd/hiosock/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hiosock probes TCP endpoints with connect timeouts, runs a small echo
// server over the socket layer, and resolves names.

package main

import (
	"os"

	"github.com/containerd/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.L.WithError(err).Error("hiosock failed")
		os.Exit(1)
	}
}
