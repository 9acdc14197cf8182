// File: socket/errors.go
// Author: momentics <momentics@gmail.com>

package socket

import (
	"github.com/containerd/log"
	"github.com/momentics/hiosock/api"
)

// fail builds the error report for a failed platform call and logs it.
// ep is nil for operations that do not target an address.
func (l *Layer) fail(cat api.Category, op string, ep *api.Endpoint, err error) error {
	se := api.NewSocketError(cat, op, ep, l.p.Errno(err), err)
	fields := log.Fields{
		"op":       op,
		"category": cat.String(),
		"code":     se.Code,
	}
	if ep != nil {
		fields["endpoint"] = ep.String()
	}
	l.logger.WithFields(fields).WithError(err).Debug("socket operation failed")
	return se
}
