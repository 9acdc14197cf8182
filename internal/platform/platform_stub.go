//go:build !unix && !windows
// +build !unix,!windows

// File: internal/platform/platform_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package platform

import (
	"time"

	"github.com/momentics/hiosock/api"
)

type stubPlatform struct{}

var native api.Platform = stubPlatform{}

func (stubPlatform) Name() string { return "stub" }
func (stubPlatform) Init() error { return api.ErrNotSupported }

func (stubPlatform) Socket() (api.Handle, error) { return api.InvalidHandle, api.ErrNotSupported }

func (stubPlatform) SetNonBlocking(api.Handle, bool) error { return api.ErrNotSupported }
func (stubPlatform) Connect(api.Handle, api.Endpoint) error { return api.ErrNotSupported }
func (stubPlatform) InProgress(error) bool { return false }
func (stubPlatform) Bind(api.Handle, api.Endpoint) error { return api.ErrNotSupported }
func (stubPlatform) Listen(api.Handle, int) error { return api.ErrNotSupported }
func (stubPlatform) Shutdown(api.Handle, api.Direction) error { return api.ErrNotSupported }
func (stubPlatform) NotConnected(error) bool { return false }
func (stubPlatform) Close(api.Handle) error { return api.ErrNotSupported }
func (stubPlatform) Errno(err error) int { return errnoOf(err) }
func (stubPlatform) Send(api.Handle, []byte) (int, error) { return 0, api.ErrNotSupported }
func (stubPlatform) Recv(api.Handle, []byte, bool) (int, error) { return 0, api.ErrNotSupported }

func (stubPlatform) WaitWritable(api.Handle, time.Duration) (bool, error) {
	return false, api.ErrNotSupported
}

func (stubPlatform) PendingError(api.Handle) (error, error) { return nil, api.ErrNotSupported }

func (stubPlatform) Accept(api.Handle) (api.Handle, api.Endpoint, error) {
	return api.InvalidHandle, api.Endpoint{}, api.ErrNotSupported
}

func (stubPlatform) LocalEndpoint(api.Handle) (api.Endpoint, error) {
	return api.Endpoint{}, api.ErrNotSupported
}

func (stubPlatform) RemoteEndpoint(api.Handle) (api.Endpoint, error) {
	return api.Endpoint{}, api.ErrNotSupported
}
