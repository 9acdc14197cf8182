//go:build linux

package platform

import "golang.org/x/sys/unix"

// sendFlags keeps a send to a reset peer from raising SIGPIPE.
const sendFlags = unix.MSG_NOSIGNAL
