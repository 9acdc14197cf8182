//go:build unix && !linux

package platform

// sendFlags is empty where MSG_NOSIGNAL does not exist; the Go runtime
// already turns SIGPIPE on sockets into EPIPE.
const sendFlags = 0
