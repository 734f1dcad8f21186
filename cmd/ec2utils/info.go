package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/younsl/ec2utils/internal/errors"
	"github.com/younsl/ec2utils/pkg/formatter"
	"github.com/younsl/ec2utils/pkg/instance"
	"github.com/younsl/ec2utils/pkg/retry"
	"github.com/younsl/ec2utils/pkg/utils"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// infoFields maps field names accepted by "info FIELD" to accessors
var infoFields = map[string]func(*instance.Info) interface{}{
	"instance-id":        func(i *instance.Info) interface{} { return i.InstanceID() },
	"region":             func(i *instance.Info) interface{} { return i.Region() },
	"availability-zone":  func(i *instance.Info) interface{} { return i.AvailabilityZone() },
	"private-ip":         func(i *instance.Info) interface{} { return i.PrivateIP() },
	"stack-name":         func(i *instance.Info) interface{} { return i.StackName() },
	"stack-id":           func(i *instance.Info) interface{} { return i.StackID() },
	"logical-id":         func(i *instance.Info) interface{} { return i.LogicalID() },
	"initial-status":     func(i *instance.Info) interface{} { return i.InitialStatus() },
	"network-interfaces": func(i *instance.Info) interface{} { return strings.Join(i.NetworkInterfaces(), "\n") },
	"tags":               func(i *instance.Info) interface{} { return i.Tags() },
	"stack-data":         func(i *instance.Info) interface{} { return i.StackDataMap() },
	"full-stack-data":    func(i *instance.Info) interface{} { return i.FullStackData() },
}

func fieldNames() []string {
	names := make([]string, 0, len(infoFields)+2)
	for name := range infoFields {
		names = append(names, name)
	}
	names = append(names, "tag:NAME", "stack-data:NAME")
	sort.Strings(names)
	return names
}

func newInfoCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "info [FIELD]",
		Short: "Show the instance description or a single field of it",
		Long: fmt.Sprintf(`Show the instance description or a single field of it.

Fields: %s`, strings.Join(fieldNames(), ", ")),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.session.Info(cmd.Context())
			if err != nil {
				return describeLoadError(err)
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				value, err := fieldValue(info, args[0])
				if err != nil {
					return err
				}
				s, err := utils.FormatValue(value)
				if err != nil {
					return err
				}
				if s != "" {
					fmt.Fprintln(out, s)
				}
				return nil
			}

			switch output {
			case outputJSON:
				return formatter.PrintInstanceJSON(out, info.Snapshot())
			case outputTable:
				formatter.PrintInstanceTable(out, info.Snapshot())
				return nil
			default:
				return apperrors.NewValidationError(fmt.Sprintf("unknown output format %q", output), nil)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

func fieldValue(info *instance.Info, field string) (interface{}, error) {
	if name, ok := strings.CutPrefix(field, "tag:"); ok {
		return info.Tag(name), nil
	}
	if name, ok := strings.CutPrefix(field, "stack-data:"); ok {
		return info.StackData(name), nil
	}
	get, ok := infoFields[field]
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown field %q (known: %s)", field, strings.Join(fieldNames(), ", ")), nil)
	}
	return get(info), nil
}

// describeLoadError turns snapshot errors into messages for the command line
func describeLoadError(err error) error {
	switch {
	case errors.Is(err, instance.ErrNotEC2):
		return apperrors.NewMetadataError("no instance data", err)
	case errors.Is(err, instance.ErrMetadataUnreachable):
		return apperrors.NewMetadataError("instance metadata service did not respond", err)
	case retry.IsExhausted(err):
		return apperrors.NewAWSError("AWS API unreachable, retries exhausted", err)
	default:
		return apperrors.NewAWSError("failed to describe instance", err)
	}
}
