// File: internal/platform/doc.go
// Package platform
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Native socket compatibility shim for hiosock. One api.Platform
// implementation per target, strictly separated by build tags (unix/windows),
// with a stub for everything else. Handle types, sentinels, shutdown
// directions, blocking-mode toggles and error codes are normalized here so
// the operations layer never special-cases an OS.

package platform
