// File: cmd/hiosock/probe.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/containerd/log"
	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/resolve"
	"github.com/momentics/hiosock/socket"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type probeOptions struct {
	timeout  time.Duration
	count    int
	interval time.Duration
}

func newProbeCommand(root *rootOptions) *cobra.Command {
	var opts probeOptions
	cmd := &cobra.Command{
		Use:   "probe HOST PORT",
		Short: "Connect to HOST:PORT with a timeout and report the outcome",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("timeout") {
				opts.timeout = root.store.Get().ConnectTimeout()
			}
			return runProbe(cmd, root, opts, args[0], args[1])
		},
	}
	flags := cmd.Flags()
	flags.DurationVarP(&opts.timeout, "timeout", "t", time.Second, "Connect timeout, 0 blocks (default from config)")
	flags.IntVarP(&opts.count, "count", "n", 1, "Number of attempts")
	flags.DurationVarP(&opts.interval, "interval", "i", 0, "Pause between attempts")
	return cmd
}

func runProbe(cmd *cobra.Command, root *rootOptions, opts probeOptions, host, portArg string) error {
	port, err := strconv.ParseUint(portArg, 10, 16)
	if err != nil {
		return errors.Wrapf(api.ErrInvalidArgument, "port %q", portArg)
	}
	if opts.count < 1 {
		return errors.Wrapf(api.ErrInvalidArgument, "count must be positive, got %d", opts.count)
	}

	ctx := cmd.Context()
	r := &resolve.Resolver{Nameserver: root.store.Get().Nameserver}
	addr, err := r.Lookup(ctx, host)
	if err != nil {
		return err
	}
	ep := api.Endpoint{Addr: addr, Port: uint16(port)}
	log.G(ctx).WithFields(log.Fields{"host": host, "endpoint": ep.String(), "timeout": opts.timeout}).Debug("probing")

	out := cmd.OutOrStdout()
	failed := 0
	for i := 0; i < opts.count; i++ {
		if i > 0 && opts.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.interval):
			}
		}
		elapsed, err := probeOnce(ctx, ep, opts.timeout)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %s after %s: %v\n", ep, api.CategoryOf(err), elapsed.Round(time.Microsecond), err)
			continue
		}
		fmt.Fprintf(out, "%s: connected in %s\n", ep, elapsed.Round(time.Microsecond))
	}
	if failed == opts.count {
		return errors.Errorf("%d of %d attempts to %s failed", failed, opts.count, ep)
	}
	return nil
}

func probeOnce(ctx context.Context, ep api.Endpoint, timeout time.Duration) (time.Duration, error) {
	l := socket.Default()
	h, err := l.Create()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := l.Close(h); err != nil {
			log.G(ctx).WithError(err).Warn("close after probe")
		}
	}()
	start := time.Now()
	err = l.ConnectWithin(h, ep, timeout)
	return time.Since(start), err
}
