package main

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/younsl/ec2utils/internal/errors"
)

func newAccountIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "account-id",
		Short: "Print the account id of the current credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.session.AccountID(cmd.Context())
			if id == "" {
				return apperrors.NewAWSError("account id could not be resolved", nil)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newRegionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "region",
		Short: "Print the region AWS calls from this host use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.session.SetRegion(cmd.Context()))
			return nil
		},
	}
}

func newClearCacheCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete the cached instance data and rebuild it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.session.ClearCache(cmd.Context())
			if err != nil {
				return describeLoadError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Instance data for %s rebuilt\n", info.InstanceID())
			return nil
		},
	}
}
