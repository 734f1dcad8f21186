package main

import (
	"github.com/spf13/cobra"

	apperrors "github.com/younsl/ec2utils/internal/errors"
	"github.com/younsl/ec2utils/pkg/metadata"
)

func newUserDataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "userdata [PATH]",
		Short: "Write the instance user data to a file, or to stdout with -",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			if err := metadata.WriteUserData(cmd.Context(), a.session.Metadata(), path, cmd.OutOrStdout()); err != nil {
				return apperrors.NewMetadataError("failed to get user data", err)
			}
			return nil
		},
	}
}
