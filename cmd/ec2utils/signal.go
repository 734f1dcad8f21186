package main

import (
	"errors"

	"github.com/spf13/cobra"

	apperrors "github.com/younsl/ec2utils/internal/errors"
	"github.com/younsl/ec2utils/pkg/instance"
)

func newSignalStatusCmd(a *app) *cobra.Command {
	var resource string

	cmd := &cobra.Command{
		Use:   "signal-status STATUS",
		Short: "Signal SUCCESS or FAILURE for a resource of the stack that owns this instance",
		Long: `Signal SUCCESS or FAILURE for a resource of the stack that owns this instance.
Without --resource the instance signals itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.session.SignalStatus(cmd.Context(), args[0], resource)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, instance.ErrNotEC2), errors.Is(err, instance.ErrMetadataUnreachable):
				return describeLoadError(err)
			case errors.Is(err, instance.ErrNotInStack):
				return apperrors.NewValidationError("cannot signal", err)
			default:
				return apperrors.NewAWSError("failed to signal status", err)
			}
		},
	}
	cmd.Flags().StringVarP(&resource, "resource", "r", "", "Logical id of the resource to signal")
	return cmd
}
