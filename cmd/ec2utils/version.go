package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/younsl/ec2utils/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Needs neither configuration nor a session
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ec2utils version %s\n", version.Get())
		},
	}
}
