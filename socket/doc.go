// Package socket
// Author: momentics <momentics@gmail.com>
//
// Stateless TCP socket operations over a caller-owned handle.
//
// Every operation performs one platform call (ConnectTimeout performs a
// short fixed sequence) and reports failure as *api.SocketError carrying a
// category, the operation, the endpoint when one was involved, and the raw
// platform code. Callers match categories with errors.Is:
//
//	if errors.Is(err, api.ConnectionTimeoutError) { ... }
//
// The package-level functions use a Layer bound to the native platform.
// Tests construct their own Layer over fake.Platform.
package socket
