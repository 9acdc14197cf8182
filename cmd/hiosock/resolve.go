// File: cmd/hiosock/resolve.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"fmt"
	"time"

	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/resolve"
	"github.com/spf13/cobra"
)

func newResolveCommand(root *rootOptions) *cobra.Command {
	var (
		nameserver string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "resolve NAME",
		Short: "Print the IPv4 address NAME resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("nameserver") {
				nameserver = root.store.Get().Nameserver
			}
			r := &resolve.Resolver{Nameserver: nameserver, Timeout: timeout}
			addr, err := r.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), api.FormatAddr(addr))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&nameserver, "nameserver", "", "Query this server (a.b.c.d[:port]) instead of the system resolver")
	flags.DurationVar(&timeout, "timeout", resolve.DefaultTimeout, "Lookup timeout")
	return cmd
}
