package main

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	apperrors "github.com/younsl/ec2utils/internal/errors"
	"github.com/younsl/ec2utils/pkg/formatter"
	"github.com/younsl/ec2utils/pkg/prune"
)

func newPruneCmd(a *app) *cobra.Command {
	var (
		prefix    string
		retention = prune.DefaultRetention()
		dryRun    bool
		noSpinner bool
	)

	cmd := &cobra.Command{
		Use:   "prune-s3-versions BUCKET",
		Short: "Delete old object versions, keeping a thinning history",
		Long: `Delete old object versions from a versioned bucket. For every key the
newest version is kept, plus the newest version in each of the most recent
ten-minute, hourly, daily, weekly, monthly and yearly periods.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bucket := args[0]

			client, err := a.session.Provider().S3(ctx, a.session.SetRegion(ctx))
			if err != nil {
				return apperrors.NewAWSError("failed to create S3 client", err)
			}
			pruner := prune.NewPruner(client)

			if !noSpinner {
				sp := spinner.New(spinner.CharSets[9], 200*time.Millisecond)
				sp.Writer = cmd.ErrOrStderr()
				sp.Start()
				defer sp.Stop()
				pruner.WithProgress(func(msg string) {
					sp.Lock()
					sp.Suffix = " " + msg + " ..."
					sp.Unlock()
				})
			}

			start := time.Now()
			result, err := pruner.Prune(ctx, bucket, prefix, retention, dryRun)
			if err != nil && result == nil {
				return apperrors.NewAWSError("failed to prune object versions", err).WithContext("bucket", bucket)
			}
			formatter.PrintPruneTable(cmd.OutOrStdout(), result, start, time.Since(start))
			if err != nil {
				return apperrors.NewAWSError("some object versions were not deleted", err).WithContext("bucket", bucket)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&prefix, "prefix", "p", "", "Only prune keys under this prefix")
	flags.IntVar(&retention.TenMinutely, "ten-minutely", retention.TenMinutely, "Number of ten-minute periods to keep a version for")
	flags.IntVar(&retention.Hourly, "hourly", retention.Hourly, "Number of hours to keep a version for")
	flags.IntVar(&retention.Daily, "daily", retention.Daily, "Number of days to keep a version for")
	flags.IntVar(&retention.Weekly, "weekly", retention.Weekly, "Number of weeks to keep a version for")
	flags.IntVar(&retention.Monthly, "monthly", retention.Monthly, "Number of months to keep a version for")
	flags.IntVar(&retention.Yearly, "yearly", retention.Yearly, "Number of years to keep a version for")
	flags.BoolVar(&dryRun, "dry-run", false, "Only show what would be deleted")
	flags.BoolVar(&noSpinner, "no-spinner", false, "Do not show progress")
	return cmd
}
